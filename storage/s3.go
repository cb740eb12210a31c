package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"rx-repurpose/config"
)

// ObjectStore ist die Teilmenge des S3-Clients, die Snapshots und Rotation brauchen.
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3Client erstellt einen S3-Client für einen S3-kompatiblen Endpunkt.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.S3URL,
				SigningRegion:     cfg.S3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3Key, cfg.S3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// SnapshotKey bildet den Objektschlüssel eines Snapshots, z.B. "rx-repurpose/kg-2024-01-02T03-04-05Z.sqlite.gz".
func SnapshotKey(prefix, name, ext string, now time.Time) string {
	file := fmt.Sprintf("%s-%s%s", name, now.UTC().Format("2006-01-02T15-04-05Z"), ext)
	if prefix == "" {
		return file
	}
	return path.Join(prefix, file)
}

// UploadFile lädt einen Datenstrom hoch und gibt die Adresse des Objekts zurück.
func UploadFile(ctx context.Context, client ObjectStore, endpoint, bucket, key string, body io.Reader) (string, error) {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(endpoint, "/"), bucket, key), nil
}

// RotateObjects behält unter prefix die keep neuesten Objekte und löscht den Rest.
// Löschfehler einzelner Objekte werden protokolliert, nicht zurückgegeben.
func RotateObjects(ctx context.Context, client ObjectStore, bucket, prefix string, keep int, logger *zap.Logger) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("rotate %s: keep must not be negative, got %d", prefix, keep)
	}
	out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return 0, err
	}

	if len(out.Contents) <= keep {
		logger.Debug("No rotation needed", zap.Int("objects", len(out.Contents)), zap.Int("keep", keep))
		return 0, nil
	}

	objects := out.Contents
	sort.Slice(objects, func(i, j int) bool {
		return aws.ToTime(objects[i].LastModified).After(aws.ToTime(objects[j].LastModified))
	})

	deleted := 0
	for _, obj := range objects[keep:] {
		key := aws.ToString(obj.Key)
		logger.Info("Deleting old snapshot", zap.String("key", key))
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    obj.Key,
		})
		if err != nil {
			logger.Warn("Failed to delete snapshot", zap.String("key", key), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}
