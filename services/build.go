package services

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"rx-repurpose/config"
	"rx-repurpose/metrics"
	"rx-repurpose/models"
	"rx-repurpose/providers/tabular"
	"rx-repurpose/storage"
)

// SourcesFromConfig baut Dateiquellen für alle konfigurierten Pfade.
func SourcesFromConfig(cfg *config.Config) Sources {
	return Sources{
		OmniPath:       tabular.NewSource(SourceOmniPath, cfg.OmniPathPath),
		Signor:         tabular.NewSource(SourceSIGNOR, cfg.SignorPath),
		String:         tabular.NewSource(SourceSTRING, cfg.StringPath),
		DrugCentral:    tabular.NewSource(SourceDrugCentral, cfg.DrugCentralPath),
		IUPHAR:         tabular.NewSource(SourceIUPHAR, cfg.IUPHARPath),
		Reactome:       tabular.NewSource(SourceReactome, cfg.ReactomePath),
		OpenTargets:    tabular.NewSource(SourceOpenTargets, cfg.OpenTargetsPath),
		GWAS:           tabular.NewSource(SourceGWAS, cfg.GWASPath),
		DisGeNET:       tabular.NewSource(SourceDisGeNET, cfg.DisGeNETPath),
		HPA:            tabular.NewSource(SourceHPA, cfg.HPAPath),
		PLAE:           tabular.NewSource(SourcePLAE, cfg.PLAEPath),
		RxNorm:         tabular.NewSource(SourceRxNorm, cfg.RxNormPath),
		SIDER:          tabular.NewSource(SourceSIDER, cfg.SIDERPath),
		ClinicalTrials: tabular.NewSource(SourceClinicalTrials, cfg.ClinicalTrialsPath),
	}
}

const (
	snapshotName = "knowledge_graph"
	scoresName   = "target_scores"
)

// BuildService orchestriert einen vollständigen Build: Assemble -> Persist -> optionale Exporte.
type BuildService struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Sources  Sources
	Exporter *storage.GraphExporter
	Store    storage.ObjectStore
}

func NewBuildService(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *BuildService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BuildService{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Sources: SourcesFromConfig(cfg),
	}
}

// BuildResult fasst einen Build-Lauf zusammen.
type BuildResult struct {
	Tables     *models.Tables
	Snapshot   string
	Scores     int
	ScoresLink string
	Took       time.Duration
}

// Run führt den Build aus. Persistenzfehler sind fatal; Neo4j-Export und Snapshot-Upload
// werden bei Fehlern nur protokolliert.
func (b *BuildService) Run(ctx context.Context) (res BuildResult, err error) {
	start := time.Now()
	defer func() {
		b.Metrics.BuildFinished(err)
		if werr := b.Metrics.WriteTextfile(b.Config.MetricsTextfile); werr != nil {
			b.Logger.Warn("Failed to write metrics textfile", zap.Error(werr))
		}
	}()

	tables, err := NewAssembler(b.Logger, b.Metrics).Assemble(ctx, b.Sources)
	if err != nil {
		return res, err
	}
	res.Tables = tables

	if err = b.persist(ctx, tables); err != nil {
		return res, err
	}

	if b.Exporter != nil {
		if exportErr := b.Exporter.Export(ctx, tables); exportErr != nil {
			b.Logger.Warn("Neo4j export failed", zap.Error(exportErr))
		}
	}

	if b.Store != nil && b.Config.DBDriver == config.DriverSQLite {
		link, snapErr := NewPublisher(b.Store, b.Config, b.Logger).Publish(ctx, b.Config.SQLitePath, snapshotName, ".sqlite.gz")
		if snapErr != nil {
			b.Logger.Warn("Snapshot upload failed", zap.Error(snapErr))
		} else {
			res.Snapshot = link
		}
	}

	res.Took = time.Since(start)
	b.Logger.Info("Build completed", zap.Duration("took", res.Took), zap.String("snapshot", res.Snapshot))
	return res, nil
}

func (b *BuildService) persist(ctx context.Context, tables *models.Tables) error {
	db, err := storage.Open(b.Config)
	if err != nil {
		return err
	}
	if sqlDB, dbErr := db.DB(); dbErr == nil {
		defer sqlDB.Close()
	}
	return storage.NewWriter(db, b.Config, b.Logger, b.Metrics).Write(ctx, tables)
}

// Score propagiert die konfigurierte Seed-Tabelle über den frisch gebauten Graphen und
// veröffentlicht die Scores optional. Ohne Seed-Datei ist der Schritt ein No-op.
func (b *BuildService) Score(ctx context.Context) (int, string, error) {
	if _, err := os.Stat(b.Config.SeedsPath); err != nil {
		b.Logger.Info("No seed table, skipping scoring", zap.String("path", b.Config.SeedsPath))
		return 0, "", nil
	}
	db, err := storage.Open(b.Config)
	if err != nil {
		return 0, "", err
	}
	if sqlDB, dbErr := db.DB(); dbErr == nil {
		defer sqlDB.Close()
	}

	n, err := NewScoringService(db, b.Config, b.Logger, b.Metrics).Run(ctx, b.Config.SeedsPath, b.Config.ScoresOutput)
	if err != nil || n == 0 || b.Store == nil {
		return n, "", err
	}
	link, err := NewPublisher(b.Store, b.Config, b.Logger).Publish(ctx, b.Config.ScoresOutput, scoresName, ".csv.gz")
	if err != nil {
		b.Logger.Warn("Score upload failed", zap.Error(err))
		return n, "", nil
	}
	return n, link, nil
}
