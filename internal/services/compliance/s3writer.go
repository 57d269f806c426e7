package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/domain"
)

// S3Writer batches audit events and uploads them to an S3-compatible
// bucket, an optional durable write-behind grounded on
// internal/reliability/r2_backup_service.go's CreateAndUploadBackup/
// upload pattern from the teacher. A nil *S3Writer is never constructed;
// callers that don't configure COMPLIANCE_S3_BUCKET pass a nil Writer
// interface instead, so compliance logging never depends on it.
type S3Writer struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger

	queue chan domain.AuditEvent
	done  chan struct{}
}

// NewS3Writer builds an async batch uploader for the given bucket. It loads
// AWS config from the environment/shared config files the same way
// config.LoadDefaultConfig does throughout the teacher's reliability
// package.
func NewS3Writer(ctx context.Context, bucket, prefix string, log zerolog.Logger) (*S3Writer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	w := &S3Writer{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   prefix,
		log:      log.With().Str("component", "compliance_s3writer").Logger(),
		queue:    make(chan domain.AuditEvent, 1024),
		done:     make(chan struct{}),
	}
	go w.batchLoop()
	return w, nil
}

// Write enqueues events for asynchronous upload; it never blocks the
// caller's compliance-logging path on network I/O.
func (w *S3Writer) Write(events []domain.AuditEvent) {
	for _, e := range events {
		select {
		case w.queue <- e:
		default:
			w.log.Warn().Str("event_id", e.EventID).Msg("compliance s3 write-behind queue full, dropping event")
		}
	}
}

// batchLoop flushes queued events to S3 every 5 seconds, same cadence
// discipline as the teacher's scheduled-backup pattern.
func (w *S3Writer) batchLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	var batch []domain.AuditEvent
	for {
		select {
		case e := <-w.queue:
			batch = append(batch, e)
		case <-ticker.C:
			if len(batch) == 0 {
				continue
			}
			w.flush(batch)
			batch = nil
		case <-w.done:
			if len(batch) > 0 {
				w.flush(batch)
			}
			return
		}
	}
}

func (w *S3Writer) flush(batch []domain.AuditEvent) {
	body, err := json.Marshal(batch)
	if err != nil {
		w.log.Error().Err(err).Msg("marshal compliance batch")
		return
	}

	key := fmt.Sprintf("%s/audit-%s.json", w.prefix, time.Now().UTC().Format("20060102T150405.000000000Z"))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = w.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		w.log.Error().Err(err).Str("key", key).Msg("upload compliance batch to s3")
		return
	}
	w.log.Debug().Str("key", key).Int("events", len(batch)).Msg("flushed compliance batch to s3")
}

// Close flushes any remaining batch and stops the background loop.
func (w *S3Writer) Close() {
	close(w.done)
}
