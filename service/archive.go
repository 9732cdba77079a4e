package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/lethabomaepa11/rocketsales-sub001/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveService stores every lifecycle event as a JSON object in MinIO,
// giving an append-only history of contract status changes.
type ArchiveService struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewArchiveService(cfg *config.ArchiveConfig) (*ArchiveService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &ArchiveService{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *ArchiveService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// EventObjectName lays events out per contract, ordered by time.
func EventObjectName(prefix string, evt LifecycleEvent) string {
	name := fmt.Sprintf("%020d-%s.json", evt.At.UnixNano(), evt.Action)
	return path.Join(prefix, evt.ContractID, name)
}

func (s *ArchiveService) Record(ctx context.Context, evt LifecycleEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, EventObjectName(s.prefix, evt),
		bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
			ContentType: "application/json",
		})
	if err != nil {
		return fmt.Errorf("failed to archive event: %w", err)
	}
	return nil
}

// History returns the archived events of one contract in the order they happened.
func (s *ArchiveService) History(ctx context.Context, contractID string) ([]LifecycleEvent, error) {
	var events []LifecycleEvent
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    path.Join(s.prefix, contractID) + "/",
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list events: %w", obj.Err)
		}
		o, err := s.client.GetObject(ctx, s.bucket, obj.Key, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		var evt LifecycleEvent
		err = json.NewDecoder(o).Decode(&evt)
		o.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode event %s: %w", obj.Key, err)
		}
		events = append(events, evt)
	}
	return events, nil
}
