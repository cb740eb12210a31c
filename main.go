package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rx-repurpose/config"
	"rx-repurpose/metrics"
	"rx-repurpose/storage"
)

var rootCmd = &cobra.Command{
	Use:   "rx-repurpose",
	Short: "Knowledge graph builder and target scoring for drug repurposing",
	Long: `rx-repurpose normalisiert öffentliche Quellen (Interaktionen, Wirkstoff-Targets,
Krankheitsassoziationen, Expression, Sicherheit, Studien) in einen relationalen
Wissensgraphen und priorisiert Targets per Netzwerkpropagation.

Beispiele:
  rx-repurpose build --sqlite-path data/kg.sqlite --omnipath omnipath.tsv --string string.tsv
  rx-repurpose score --graph data/kg.sqlite --seeds seeds.csv --output scores.csv
  rx-repurpose module --graph data/kg.sqlite --seeds seeds.csv
  rx-repurpose schema ddl
  rx-repurpose schedule`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(buildCmd, scoreCmd, moduleCmd, schemaCmd, scheduleCmd)
}

// runtimeEnv bündelt, was jeder ausführende Befehl braucht.
type runtimeEnv struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func loadEnv() (*runtimeEnv, error) {
	logging, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("can't initialize zap logger: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config load error: %w", err)
	}
	return &runtimeEnv{cfg: cfg, logger: logging, metrics: metrics.New()}, nil
}

// exportTargets verbindet optionale Exportziele (Neo4j, S3). Fehler deaktivieren nur das jeweilige Ziel.
func (e *runtimeEnv) exportTargets(ctx context.Context) (*storage.GraphExporter, storage.ObjectStore) {
	exporter, err := storage.NewGraphExporter(ctx, e.cfg, e.logger)
	if err != nil {
		e.logger.Warn("Neo4j export disabled", zap.Error(err))
		exporter = nil
	}
	if !e.cfg.S3Enabled() {
		return exporter, nil
	}
	client, err := storage.NewS3Client(ctx, e.cfg)
	if err != nil {
		e.logger.Warn("S3 snapshots disabled", zap.Error(err))
		return exporter, nil
	}
	return exporter, client
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("rx-repurpose: %v", err)
		stop()
		os.Exit(1)
	}
}
