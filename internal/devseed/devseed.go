// Package devseed submits sample businesses for local development and demos.
package devseed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dealscope/scoreq/config"
	"github.com/dealscope/scoreq/internal/data"
	"github.com/dealscope/scoreq/internal/domain/model"
	"github.com/dealscope/scoreq/internal/service"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	submission *service.SubmissionService
}

// NewServices constructs the submission service for seeding using the provided Redis client.
func NewServices(client redis.UniversalClient, workerCfg config.WorkerConfig) Services {
	workerCfg.Sanitize()

	store := data.NewRedisJobStore(client, workerCfg.StoreTTL())
	queue := data.NewRedisQueue(client, workerCfg.QueueName)

	submission := service.MustNewSubmissionService(service.SubmissionServiceOptions{
		Store:     store,
		Queue:     queue,
		QueueName: workerCfg.QueueName,
	})

	return Services{submission: submission}
}

// Run submits the sample businesses and logs their job ids.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	failures := 0
	for _, business := range sampleBusinesses() {
		payload, err := json.Marshal(business)
		if err != nil {
			return fmt.Errorf("marshal sample business %q: %w", business.Name, err)
		}

		jobID, err := svcs.submission.Submit(ctx, payload)
		if err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to submit sample business", "name", business.Name, "error", err)
			}
			failures++
			continue
		}
		if logger != nil {
			logger.InfoContext(ctx, "submitted sample business", "name", business.Name, "job_id", jobID)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

func sampleBusinesses() []model.Business {
	return []model.Business{
		{
			Name:           "SaaS Company A",
			MonthlyRevenue: 25000,
			MonthlyProfit:  15000,
			GrowthRate:     25,
			MarketSize:     50000000,
			Industry:       "SaaS",
			YearsOperated:  3,
		},
		{
			Name:           "E-commerce Business B",
			MonthlyRevenue: 15000,
			MonthlyProfit:  8000,
			GrowthRate:     15,
			MarketSize:     30000000,
			Industry:       "E-commerce",
			YearsOperated:  2,
		},
	}
}
