package services

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"go.uber.org/zap"

	"rx-repurpose/config"
	"rx-repurpose/storage"
)

// Publisher lädt Artefakte (SQLite-Snapshot, Score-Tabellen) gzip-komprimiert nach S3.
type Publisher struct {
	Store  storage.ObjectStore
	Bucket string
	URL    string
	Prefix string
	Keep   int
	Logger *zap.Logger
}

func NewPublisher(store storage.ObjectStore, cfg *config.Config, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		Store:  store,
		Bucket: cfg.S3Bucket,
		URL:    cfg.S3URL,
		Prefix: cfg.S3Prefix,
		Keep:   cfg.KeepBackups,
		Logger: logger,
	}
}

// Publish lädt localPath als "<prefix>/<name>-<zeitstempel><ext>" hoch und behält
// nur die Keep neuesten Objekte desselben Namens.
func (p *Publisher) Publish(ctx context.Context, localPath, name, ext string) (string, error) {
	raw, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}

	key := storage.SnapshotKey(p.Prefix, name, ext, time.Now())
	link, err := storage.UploadFile(ctx, p.Store, p.URL, p.Bucket, key, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	p.Logger.Info("Artifact uploaded", zap.String("key", key), zap.Int("bytes", buf.Len()))

	if p.Keep > 0 {
		rotatePrefix := path.Join(p.Prefix, name) + "-"
		if _, err := storage.RotateObjects(ctx, p.Store, p.Bucket, rotatePrefix, p.Keep, p.Logger); err != nil {
			p.Logger.Warn("Artifact rotation failed", zap.String("name", name), zap.Error(err))
		}
	}
	return link, nil
}
