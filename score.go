package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rx-repurpose/services"
	"rx-repurpose/storage"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Propagate disease seeds over the interaction graph",
	Long: `Lädt die vorzeichenbehafteten Interaktionen aus einem gebauten Graphen, propagiert
jedes Seed-Set (disease_id, gene_symbol, score) per Wärmediffusion oder Random Walk
with Restart und schreibt eine Tabelle (disease_id, target_id, score).`,
	RunE: runScore,
}

var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "Score interconnectivity of disease modules",
	Long: `Berechnet für jedes Seed-Set die mittlere Pfadlänge zwischen den Modulgenen und
deren z-Score gegen zufällige Knotenmengen gleicher Größe.`,
	RunE: runModule,
}

func init() {
	for _, c := range []*cobra.Command{scoreCmd, moduleCmd} {
		c.Flags().String("graph", "", "SQLite file or PostgreSQL DSN of a built graph")
		c.Flags().String("seeds", "", "seed table (overrides KG_SEEDS_PATH)")
		_ = c.MarkFlagRequired("graph")
	}
	scoreCmd.Flags().String("output", "", "score table (overrides KG_SCORES_OUTPUT)")
	scoreCmd.Flags().String("method", services.MethodHeat, "heat or rwr")

	moduleCmd.Flags().String("output", "disease_modules.csv", "module statistics table")
	moduleCmd.Flags().Int("iterations", 1000, "random sets for the z-score null model")
	moduleCmd.Flags().Int64("seed", 42, "random seed for the null model")
}

// scoringRun bündelt die geöffnete Graph-Datenbank mit dem Scoring-Service.
type scoringRun struct {
	env    *runtimeEnv
	svc    *services.ScoringService
	target string
	db     *gorm.DB
}

// Close schließt die Datenbankverbindung und leert den Logger.
func (r *scoringRun) Close() {
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = r.env.logger.Sync()
}

// prepareScoring öffnet den Graphen und übernimmt gemeinsame Flags.
func prepareScoring(cmd *cobra.Command) (*scoringRun, error) {
	env, err := loadEnv()
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	if v, _ := f.GetString("seeds"); v != "" {
		env.cfg.SeedsPath = v
	}
	if f.Lookup("method") != nil && f.Changed("method") {
		env.cfg.Method, _ = f.GetString("method")
	}
	if f.Lookup("iterations") != nil && f.Changed("iterations") {
		env.cfg.ZIterations, _ = f.GetInt("iterations")
	}
	if f.Lookup("seed") != nil && f.Changed("seed") {
		env.cfg.RandomSeed, _ = f.GetInt64("seed")
	}
	if err := env.cfg.Validate(); err != nil {
		return nil, err
	}

	target, _ := f.GetString("graph")
	db, err := storage.OpenTarget(target)
	if err != nil {
		return nil, err
	}
	return &scoringRun{
		env:    env,
		svc:    services.NewScoringService(db, env.cfg, env.logger, env.metrics),
		target: target,
		db:     db,
	}, nil
}

func runScore(cmd *cobra.Command, _ []string) error {
	run, err := prepareScoring(cmd)
	if err != nil {
		return err
	}
	defer run.Close()
	env := run.env

	output := env.cfg.ScoresOutput
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		output = v
	}
	n, err := run.svc.Run(cmd.Context(), env.cfg.SeedsPath, output)
	if err != nil {
		env.logger.Error("Scoring failed", zap.String("graph", run.target), zap.Error(err))
		return err
	}
	if err := env.metrics.WriteTextfile(env.cfg.MetricsTextfile); err != nil {
		env.logger.Warn("Failed to write metrics textfile", zap.Error(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d scores written to %s\n", n, output)
	return nil
}

func runModule(cmd *cobra.Command, _ []string) error {
	run, err := prepareScoring(cmd)
	if err != nil {
		return err
	}
	defer run.Close()

	output, _ := cmd.Flags().GetString("output")
	n, err := run.svc.RunModules(cmd.Context(), run.env.cfg.SeedsPath, output)
	if err != nil {
		run.env.logger.Error("Module scoring failed", zap.String("graph", run.target), zap.Error(err))
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d modules written to %s\n", n, output)
	return nil
}
