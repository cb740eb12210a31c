package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rx-repurpose/config"
	"rx-repurpose/metrics"
	"rx-repurpose/models"
	"rx-repurpose/schema"
)

// ErrUnknownTable wird für Tabellen außerhalb des Schemas zurückgegeben.
var ErrUnknownTable = errors.New("unknown table")

// Writer persistiert einen Tabellensatz nach der konfigurierten Policy.
//
//   - replace: Schema anlegen, alle Tabellen leeren und neu befüllen (eine Transaktion).
//   - append: Schema anlegen und Zeilen anhängen; Wiederholungen erzeugen Duplikate.
type Writer struct {
	DB        *gorm.DB
	Driver    string
	Mode      string
	BatchSize int
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// NewWriter übernimmt Treiber, Policy und Batchgröße aus der Konfiguration.
func NewWriter(db *gorm.DB, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		DB:        db,
		Driver:    cfg.DBDriver,
		Mode:      cfg.WriteMode,
		BatchSize: cfg.BatchSize,
		Logger:    logger,
		Metrics:   m,
	}
}

// Write schreibt alle Tabellen. Jeder Fehler bricht ab; bei replace wird zurückgerollt.
func (w *Writer) Write(ctx context.Context, tables *models.Tables) error {
	start := time.Now()
	log := w.Logger.With(zap.String("driver", w.Driver), zap.String("mode", w.Mode))

	write := func(tx *gorm.DB) error {
		if err := schema.Apply(ctx, tx); err != nil {
			return err
		}
		for _, tr := range tables.Each() {
			if w.Mode == config.WriteModeReplace {
				if err := w.clear(ctx, tx, tr.Name); err != nil {
					return err
				}
			}
			if err := w.insert(ctx, tx, tr); err != nil {
				return err
			}
			log.Info("Table written", zap.String("table", tr.Name), zap.Int("rows", tr.Count))
		}
		return nil
	}

	var err error
	switch w.Mode {
	case config.WriteModeReplace:
		err = w.DB.WithContext(ctx).Transaction(write)
	case config.WriteModeAppend:
		err = write(w.DB.WithContext(ctx))
	default:
		err = fmt.Errorf("unknown write mode %q", w.Mode)
	}
	if err != nil {
		log.Error("Persisting tables failed", zap.Error(err))
		return err
	}

	w.Metrics.ObserveWrite(w.Driver, w.Mode, time.Since(start))
	log.Info("Knowledge graph persisted", zap.Duration("took", time.Since(start)))
	return nil
}

func (w *Writer) clear(ctx context.Context, tx *gorm.DB, table string) error {
	if _, ok := schema.Lookup(table); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	stmt := "DELETE FROM " + table
	if w.Driver == config.DriverPostgres {
		stmt = "TRUNCATE TABLE " + table
	}
	if err := tx.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	return nil
}

func (w *Writer) insert(ctx context.Context, tx *gorm.DB, tr models.TableRows) error {
	if _, ok := schema.Lookup(tr.Name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, tr.Name)
	}
	if tr.Count == 0 {
		return nil
	}
	batch := w.BatchSize
	if batch <= 0 {
		batch = 1000
	}
	if err := tx.WithContext(ctx).Table(tr.Name).CreateInBatches(tr.Rows, batch).Error; err != nil {
		return fmt.Errorf("insert %s: %w", tr.Name, err)
	}
	return nil
}
