package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"lendmatch/internal/utils"
	"lendmatch/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const archiveKeyTimeFormat = "20060102T150405Z"

// PutObjectAPI is the part of the S3 client the archive needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// MatchArchive writes committed match runs to an S3 bucket as JSON documents
type MatchArchive struct {
	client PutObjectAPI
	bucket string
	prefix string
}

func NewMatchArchive(client PutObjectAPI, bucket, prefix string) *MatchArchive {
	return &MatchArchive{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Key returns the object key for a run. Keys sort by run time within a quote.
func (a *MatchArchive) Key(run *types.MatchRun) string {
	key := fmt.Sprintf("quote-%d/%s-%s.json",
		run.QuoteID, run.RanAt.UTC().Format(archiveKeyTimeFormat), utils.NanoIDSize(10))

	if a.prefix == "" {
		return key
	}
	return a.prefix + "/" + key
}

// ArchiveRun uploads the run and returns the key it was stored under
func (a *MatchArchive) ArchiveRun(ctx context.Context, run *types.MatchRun) (string, error) {
	body, err := json.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("failed to encode match run for quote %d: %w", run.QuoteID, err)
	}

	key := a.Key(run)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload match run to s3://%s/%s: %w", a.bucket, key, err)
	}

	return key, nil
}
