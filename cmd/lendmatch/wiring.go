package main

import (
	"context"
	"time"

	"lendmatch/internal/lock"
	"lendmatch/internal/matching"
	"lendmatch/internal/storage"
	"lendmatch/internal/store"
	"lendmatch/pkg/types"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// newMatchingService wires the repositories and the optional run lock and
// archive. The returned cleanup closes whatever was opened.
func newMatchingService(ctx context.Context, cfg *types.Config, logger *logrus.Logger, pool *pgxpool.Pool) (*matching.Service, func(), error) {
	cleanup := func() {}

	opts := []matching.ServiceOption{
		matching.WithTimeout(time.Duration(cfg.MatchTimeoutSec) * time.Second),
	}

	if cfg.RedisURL != "" {
		client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { _ = client.Close() }

		locker := lock.NewQuoteLocker(
			client,
			time.Duration(cfg.MatchLockTTLSec)*time.Second,
			time.Duration(cfg.MatchLockWaitSec)*time.Second,
		)
		opts = append(opts, matching.WithLocker(locker))
		logger.Info("match run lock enabled")
	}

	if cfg.MatchAuditBucket != "" {
		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}

		archive := storage.NewMatchArchive(s3.NewFromConfig(awsConfig), cfg.MatchAuditBucket, cfg.MatchAuditPrefix)
		opts = append(opts, matching.WithArchiver(archive))
		logger.WithField("bucket", cfg.MatchAuditBucket).Info("match run archive enabled")
	}

	quoteRepo := store.NewQuoteRepository(pool)
	productRepo := store.NewLoanProductRepository(pool)
	resultRepo := store.NewMatchResultRepository(pool)

	svc := matching.NewService(matching.NewEngine(time.Now), quoteRepo, productRepo, resultRepo, logger, opts...)
	return svc, cleanup, nil
}
