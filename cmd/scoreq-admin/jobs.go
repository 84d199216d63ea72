package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealscope/scoreq/internal/bootstrap"
	"github.com/dealscope/scoreq/internal/data"
	"github.com/dealscope/scoreq/internal/devseed"
	"github.com/dealscope/scoreq/internal/domain/model"
	"github.com/dealscope/scoreq/internal/service"
)

const commandTimeout = 2 * time.Minute

type submitOptions struct {
	JSON string
	File string
}

type statusOptions struct {
	JobID   string
	RawJSON bool
}

type purgeOptions struct {
	Jobs bool
	Yes  bool
}

func runSubmit(cmdCtx *commandContext, args []string) error {
	opts, err := parseSubmitFlags(args)
	if err != nil {
		return err
	}

	payload, err := loadSubmitPayload(opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	return withSubmission(cmdCtx, func(svc *service.SubmissionService) error {
		jobID, submitErr := svc.Submit(ctx, payload)
		if submitErr != nil {
			return submitErr
		}
		return writef(os.Stdout, "submitted job %s\n", jobID)
	})
}

func runStatus(cmdCtx *commandContext, args []string) error {
	opts, err := parseStatusFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	return withSubmission(cmdCtx, func(svc *service.SubmissionService) error {
		job, statusErr := svc.GetStatus(ctx, opts.JobID)
		if statusErr != nil {
			return statusErr
		}

		if opts.RawJSON {
			raw, marshalErr := json.MarshalIndent(job, "", "  ")
			if marshalErr != nil {
				return fmt.Errorf("encode job: %w", marshalErr)
			}
			return writef(os.Stdout, "%s\n", raw)
		}

		return printJob(job)
	})
}

func runStats(cmdCtx *commandContext, _ []string) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	return withSubmission(cmdCtx, func(svc *service.SubmissionService) error {
		stats, statsErr := svc.QueueStats(ctx)
		if statsErr != nil {
			return statsErr
		}
		return printStats(stats)
	})
}

func runSeed(cmdCtx *commandContext, _ []string) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	return withRedis(cmdCtx, func(client redis.UniversalClient) error {
		return devseed.Run(ctx, devseed.NewServices(client, cmdCtx.Config.Worker), cmdCtx.Logger)
	})
}

func runPurgeQueue(cmdCtx *commandContext, args []string) error {
	opts, err := parsePurgeFlags(args)
	if err != nil {
		return err
	}
	if !opts.Yes {
		return errors.New("purge-queue is destructive; re-run with --yes to confirm")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	return withRedis(cmdCtx, func(client redis.UniversalClient) error {
		queue := data.NewRedisQueue(client, cmdCtx.Config.Worker.QueueName)
		if _, delErr := client.Del(ctx, queue.Key()).Result(); delErr != nil {
			return fmt.Errorf("delete queue %s: %w", queue.Key(), delErr)
		}
		if writeErr := writef(os.Stdout, "deleted queue %s\n", queue.Key()); writeErr != nil {
			return writeErr
		}

		if !opts.Jobs {
			return nil
		}
		return purgeJobDocuments(ctx, client)
	})
}

func purgeJobDocuments(ctx context.Context, client redis.UniversalClient) error {
	deleted := 0
	iter := client.Scan(ctx, 0, "job:*", 100).Iterator()
	for iter.Next(ctx) {
		if _, err := client.Del(ctx, iter.Val()).Result(); err != nil {
			return fmt.Errorf("delete %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return writef(os.Stdout, "deleted %d job documents\n", deleted)
}

func parseSubmitFlags(args []string) (submitOptions, error) {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts submitOptions
	fs.StringVar(&opts.JSON, "json", "", "Business payload as an inline JSON object")
	fs.StringVar(&opts.File, "file", "", "Path to a JSON file with the business payload")

	if err := fs.Parse(args); err != nil {
		return submitOptions{}, err
	}

	if opts.JSON == "" && opts.File == "" {
		return submitOptions{}, errors.New("one of --json or --file is required")
	}
	if opts.JSON != "" && opts.File != "" {
		return submitOptions{}, errors.New("--json and --file are mutually exclusive")
	}

	return opts, nil
}

func loadSubmitPayload(opts submitOptions) (json.RawMessage, error) {
	if opts.JSON != "" {
		return json.RawMessage(opts.JSON), nil
	}
	raw, err := os.ReadFile(opts.File)
	if err != nil {
		return nil, fmt.Errorf("read payload file: %w", err)
	}
	return raw, nil
}

func parseStatusFlags(args []string) (statusOptions, error) {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts statusOptions
	fs.StringVar(&opts.JobID, "job-id", "", "Job ID to inspect (required)")
	fs.BoolVar(&opts.RawJSON, "json", false, "Print the raw job document")

	if err := fs.Parse(args); err != nil {
		return statusOptions{}, err
	}

	opts.JobID = strings.TrimSpace(opts.JobID)
	if opts.JobID == "" {
		return statusOptions{}, errors.New("--job-id is required")
	}

	return opts, nil
}

func parsePurgeFlags(args []string) (purgeOptions, error) {
	fs := flag.NewFlagSet("purge-queue", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts purgeOptions
	fs.BoolVar(&opts.Jobs, "jobs", false, "Also delete all stored job documents")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation")

	if err := fs.Parse(args); err != nil {
		return purgeOptions{}, err
	}

	return opts, nil
}

func withRedis(cmdCtx *commandContext, f func(redis.UniversalClient) error) error {
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	return f(client)
}

func withSubmission(cmdCtx *commandContext, f func(*service.SubmissionService) error) error {
	return withRedis(cmdCtx, func(client redis.UniversalClient) error {
		workerCfg := cmdCtx.Config.Worker
		store := data.NewRedisJobStore(client, workerCfg.StoreTTL())
		queue := data.NewRedisQueue(client, workerCfg.QueueName)
		svc := service.MustNewSubmissionService(service.SubmissionServiceOptions{
			Store:     store,
			Queue:     queue,
			Logger:    cmdCtx.Logger,
			QueueName: workerCfg.QueueName,
		})
		return f(svc)
	})
}

func printJob(job *model.Job) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "ID\t%s\n", job.ID); err != nil {
		return err
	}
	if err := writef(w, "Status\t%s\n", job.Status); err != nil {
		return err
	}
	if err := writef(w, "Created\t%s\n", job.CreatedAt.Format(time.RFC3339)); err != nil {
		return err
	}
	if job.Score != nil {
		if err := writef(w, "Score\t%.2f\n", *job.Score); err != nil {
			return err
		}
	}
	if job.Error != nil {
		if err := writef(w, "Error\t%s\n", *job.Error); err != nil {
			return err
		}
	}
	if job.CompletedAt != nil {
		if err := writef(w, "Completed\t%s\n", job.CompletedAt.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush job table: %w", err)
	}

	for _, reason := range job.Reasoning {
		if err := writef(os.Stdout, "  - %s\n", reason); err != nil {
			return err
		}
	}
	return nil
}

func printStats(stats *model.QueueStats) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writeln(w, "Metric\tValue"); err != nil {
		return err
	}
	if err := writef(w, "Pending (queue depth)\t%d\n", stats.PendingJobs); err != nil {
		return err
	}
	if err := writef(w, "Total stored\t%d\n", stats.TotalJobs); err != nil {
		return err
	}
	if err := writef(w, "Completed\t%d\n", stats.CompletedJobs); err != nil {
		return err
	}
	if err := writef(w, "Failed\t%d\n", stats.FailedJobs); err != nil {
		return err
	}
	if err := writef(w, "Processing\t%d\n", stats.ProcessingJobs); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush stats table: %w", err)
	}
	return nil
}
