// Package data contains the Redis-backed repositories for job documents and
// the scoring queue.
package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealscope/scoreq/internal/domain/model"
)

const jobKeyPrefix = "job:"

// scanBatchSize is the COUNT hint for SCAN when walking job documents.
const scanBatchSize = 100

// RedisJobStore stores job documents as JSON strings under "job:<id>" with
// a fixed TTL. Every write replaces the whole document and resets the TTL,
// so a job's retention is measured from its last update.
type RedisJobStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisJobStore creates a RedisJobStore with the given client and
// document retention.
func NewRedisJobStore(client redis.UniversalClient, ttl time.Duration) *RedisJobStore {
	return &RedisJobStore{client: client, ttl: ttl}
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

// Put stores the job, replacing any existing document and resetting its TTL.
func (s *RedisJobStore) Put(ctx context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return errors.New("job id cannot be empty")
	}

	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}

	if err := s.client.Set(ctx, jobKey(job.ID), doc, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", jobKey(job.ID), err)
	}
	return nil
}

// Get retrieves a job by id. A missing or expired document is reported via
// the boolean, not an error.
func (s *RedisJobStore) Get(ctx context.Context, id string) (*model.Job, bool, error) {
	if id == "" {
		return nil, false, errors.New("job id cannot be empty")
	}

	doc, err := s.client.Get(ctx, jobKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", jobKey(id), err)
	}

	var job model.Job
	if err := json.Unmarshal([]byte(doc), &job); err != nil {
		return nil, false, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, true, nil
}

// Scan visits every stored job document using the SCAN iterator. Documents
// that expire mid-scan are skipped. The visit callback can stop the scan
// early by returning an error.
func (s *RedisJobStore) Scan(ctx context.Context, visit func(*model.Job) error) error {
	iter := s.client.Scan(ctx, 0, jobKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		doc, err := s.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // expired between SCAN and GET
			}
			return fmt.Errorf("redis get %s: %w", iter.Val(), err)
		}

		var job model.Job
		if err := json.Unmarshal([]byte(doc), &job); err != nil {
			return fmt.Errorf("unmarshal job at %s: %w", iter.Val(), err)
		}
		if err := visit(&job); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

// Health checks the health of the Redis connection.
func (s *RedisJobStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
