package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/Netcracker/qubership-data-exporter/utils"
	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// ArchiveStorageService keeps a copy of completed archives in S3 compatible storage.
type ArchiveStorageService interface {
	IsEnabled() bool
	UploadArchive(ctx context.Context, jobId string, localPath string, fileName string) (string, error)
	GetArchive(ctx context.Context, objectKey string) (io.ReadCloser, int64, error)
	RemoveJobObjects(ctx context.Context, jobId string) error
}

func NewArchiveStorageService(creds view.MinioStorageCreds) (ArchiveStorageService, error) {
	if !creds.IsActive {
		return &archiveStorageServiceImpl{}, nil
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = utils.GetSecureTLSConfigWithCustomCerts([]byte(creds.Crt))
	client, err := minio.New(creds.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(creds.AccessKey, creds.SecretKey, ""),
		Secure:    creds.UseSSL,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, creds.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", creds.BucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, creds.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", creds.BucketName, err)
		}
		log.Infof("Bucket %s was created", creds.BucketName)
	}
	return &archiveStorageServiceImpl{client: client, bucketName: creds.BucketName}, nil
}

type archiveStorageServiceImpl struct {
	client     *minio.Client
	bucketName string
}

func (a archiveStorageServiceImpl) IsEnabled() bool {
	return a.client != nil
}

func (a archiveStorageServiceImpl) UploadArchive(ctx context.Context, jobId string, localPath string, fileName string) (string, error) {
	if !a.IsEnabled() {
		return "", nil
	}
	start := time.Now()
	objectKey := path.Join(view.ArchiveObjectPrefix, jobId, fileName)
	info, err := a.client.FPutObject(ctx, a.bucketName, objectKey, localPath, minio.PutObjectOptions{ContentType: "application/zip"})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}
	utils.PerfLog(time.Since(start), 5*time.Second, "upload of %s (%d bytes)", objectKey, info.Size)
	return objectKey, nil
}

func (a archiveStorageServiceImpl) GetArchive(ctx context.Context, objectKey string) (io.ReadCloser, int64, error) {
	if !a.IsEnabled() {
		return nil, 0, fmt.Errorf("archive storage is disabled")
	}
	object, err := a.client.GetObject(ctx, a.bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get %s: %w", objectKey, err)
	}
	stat, err := object.Stat()
	if err != nil {
		object.Close()
		return nil, 0, fmt.Errorf("failed to stat %s: %w", objectKey, err)
	}
	return object, stat.Size, nil
}

func (a archiveStorageServiceImpl) RemoveJobObjects(ctx context.Context, jobId string) error {
	if !a.IsEnabled() {
		return nil
	}
	prefix := path.Join(view.ArchiveObjectPrefix, jobId) + "/"
	for object := range a.client.ListObjects(ctx, a.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return fmt.Errorf("failed to list objects of job %s: %w", jobId, object.Err)
		}
		if err := a.client.RemoveObject(ctx, a.bucketName, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", object.Key, err)
		}
	}
	return nil
}
