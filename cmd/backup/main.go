package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path"
	"time"

	"go.uber.org/zap"

	"rx-repurpose/config"
	"rx-repurpose/storage"
)

const backupName = "backup"

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()
	logging.Info("Starte Backup-Prozess...")

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Fehler beim Laden der Konfiguration", zap.Error(err))
	}
	if !cfg.S3Enabled() {
		logging.Fatal("S3_URL und S3_BUCKET müssen gesetzt sein")
	}
	ctx := context.Background()

	// 1. Datenbank-Dump erstellen
	dumpData, ext, err := createDump(ctx, cfg)
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des DB-Dumps", zap.Error(err))
	}

	// 2. S3-Client erstellen
	s3Client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des S3-Clients", zap.Error(err))
	}

	// 3. Backup nach S3 hochladen
	key := storage.SnapshotKey(cfg.S3Prefix, backupName, ext, time.Now())
	link, err := storage.UploadFile(ctx, s3Client, cfg.S3URL, cfg.S3Bucket, key, bytes.NewReader(dumpData))
	if err != nil {
		logging.Fatal("Fehler beim Hochladen nach S3", zap.Error(err))
	}
	logging.Info("Backup erfolgreich hochgeladen", zap.String("location", link), zap.Int("bytes", len(dumpData)))

	// 4. Alte Backups rotieren
	prefix := path.Join(cfg.S3Prefix, backupName) + "-"
	deleted, err := storage.RotateObjects(ctx, s3Client, cfg.S3Bucket, prefix, cfg.KeepBackups, logging)
	if err != nil {
		logging.Fatal("Fehler bei der Rotation alter Backups", zap.Error(err))
	}

	logging.Info("Backup-Prozess erfolgreich abgeschlossen.", zap.Int("rotated", deleted))
}

// createDump liefert einen gzip-komprimierten Dump und die passende Dateiendung.
func createDump(ctx context.Context, cfg *config.Config) ([]byte, string, error) {
	if cfg.DBDriver == config.DriverSQLite {
		f, err := os.Open(cfg.SQLitePath)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		data, err := compress(f)
		return data, ".sqlite.gz", err
	}

	cmd := exec.CommandContext(ctx, "pg_dump", "--dbname", cfg.DSN(), "-w")
	if cfg.DBPassword != "" {
		// Passwort wird über PGPASSWORD bereitgestellt
		cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", cfg.DBPassword))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, "", err
	}
	if err := cmd.Start(); err != nil {
		return nil, "", err
	}
	data, err := compress(stdout)
	if err != nil {
		_ = cmd.Wait()
		return nil, "", err
	}
	if err := cmd.Wait(); err != nil {
		return nil, "", fmt.Errorf("pg_dump: %w", err)
	}
	return data, ".sql.gz", nil
}

func compress(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err := io.Copy(gzipWriter, r); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
