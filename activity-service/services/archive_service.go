package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"time"

	"panelgrid-backend/shared/config"
	"panelgrid-backend/shared/database/models/audit"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveService copies activity rows into object storage before a prune
// sweep deletes them
type ArchiveService struct {
	client     *minio.Client
	bucketName string
}

func NewArchiveService() (*ArchiveService, error) {
	cfg := config.GetConfig()

	// Parse endpoint URL to get host
	parsedURL, err := url.Parse(cfg.MinIOServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MinIO endpoint: %v", err)
	}

	endpoint := parsedURL.Host
	useSSL := cfg.MinIOUseSSL

	log.Printf("🔗 Connecting to MinIO: %s (SSL: %v)", endpoint, useSSL)

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIORootUser, cfg.MinIORootPassword, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	service := &ArchiveService{
		client:     minioClient,
		bucketName: cfg.ActivityArchiveBucket,
	}

	if err := service.initializeBucket(); err != nil {
		return nil, err
	}

	return service, nil
}

func (s *ArchiveService) initializeBucket() error {
	ctx := context.Background()

	log.Printf("🪣 Checking bucket: %s", s.bucketName)

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %v", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %v", err)
		}
		log.Printf("✅ MinIO bucket '%s' created successfully", s.bucketName)
	} else {
		log.Printf("✅ MinIO bucket '%s' already exists", s.bucketName)
	}

	return nil
}

// Archive writes the batch as one JSON object. An error here makes the
// prune sweep abort, so rows are never deleted without a stored copy.
func (s *ArchiveService) Archive(logs []audit.ActivityLog) error {
	if len(logs) == 0 {
		return nil
	}

	payload, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("failed to serialize activity batch: %v", err)
	}

	objectKey := fmt.Sprintf("activity/%s-%s.json",
		time.Now().UTC().Format("20060102T150405"),
		uuid.New().String()[:8])

	ctx := context.Background()
	_, err = s.client.PutObject(ctx, s.bucketName, objectKey,
		bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
			ContentType: "application/json",
		})
	if err != nil {
		return fmt.Errorf("failed to upload activity archive: %v", err)
	}

	log.Printf("✅ Archived %d activity records to %s/%s", len(logs), s.bucketName, objectKey)
	return nil
}
