package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rx-repurpose/config"
	"rx-repurpose/services"
)

// sourceFlag verknüpft ein CLI-Flag mit dem Pfadfeld der Konfiguration.
type sourceFlag struct {
	name  string
	usage string
	path  func(*config.Config) *string
}

var sourceFlags = []sourceFlag{
	{"omnipath", "OmniPath interactions extract", func(c *config.Config) *string { return &c.OmniPathPath }},
	{"signor", "SIGNOR causal interactions extract", func(c *config.Config) *string { return &c.SignorPath }},
	{"string", "STRING physical links extract", func(c *config.Config) *string { return &c.StringPath }},
	{"drugcentral", "DrugCentral drug-target extract", func(c *config.Config) *string { return &c.DrugCentralPath }},
	{"iuphar", "IUPHAR/BPS interactions extract", func(c *config.Config) *string { return &c.IUPHARPath }},
	{"reactome", "Reactome pathway membership extract", func(c *config.Config) *string { return &c.ReactomePath }},
	{"opentargets", "Open Targets disease associations", func(c *config.Config) *string { return &c.OpenTargetsPath }},
	{"gwas", "GWAS Catalog associations", func(c *config.Config) *string { return &c.GWASPath }},
	{"disgenet", "DisGeNET gene-disease associations", func(c *config.Config) *string { return &c.DisGeNETPath }},
	{"hpa", "Human Protein Atlas tissue expression", func(c *config.Config) *string { return &c.HPAPath }},
	{"plae", "PLAE ocular expression", func(c *config.Config) *string { return &c.PLAEPath }},
	{"rxnorm", "RxNorm drug vocabulary", func(c *config.Config) *string { return &c.RxNormPath }},
	{"sider", "SIDER side effects", func(c *config.Config) *string { return &c.SIDERPath }},
	{"clinicaltrials", "ClinicalTrials.gov studies", func(c *config.Config) *string { return &c.ClinicalTrialsPath }},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Assemble source extracts into the knowledge graph",
	Long: `Liest alle angegebenen Quell-Extrakte (CSV, TSV, Parquet), normalisiert sie auf
das kanonische Schema und schreibt die Tabellen nach SQLite oder PostgreSQL.

Nicht angegebene oder fehlerhafte Quellen werden übersprungen.`,
	RunE: runBuild,
}

func init() {
	registerBuildFlags(buildCmd)
}

func registerBuildFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	for _, s := range sourceFlags {
		f.String(s.name, "", s.usage+" (csv, tsv or parquet)")
	}
	f.String("sqlite-path", "", "SQLite database file (overrides KG_SQLITE_PATH)")
	f.String("postgres-dsn", "", "PostgreSQL DSN (overrides KG_POSTGRES_DSN)")
	f.String("write-mode", config.WriteModeReplace, "replace or append")
	f.Int("batch-size", 1000, "rows per insert batch")
	cmd.MarkFlagsMutuallyExclusive("sqlite-path", "postgres-dsn")
}

// applyBuildFlags überträgt explizit gesetzte Flags in die Konfiguration.
func applyBuildFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	for _, s := range sourceFlags {
		if v, _ := f.GetString(s.name); v != "" {
			*s.path(cfg) = v
		}
	}
	if v, _ := f.GetString("sqlite-path"); v != "" {
		cfg.DBDriver = config.DriverSQLite
		cfg.SQLitePath = v
	}
	if v, _ := f.GetString("postgres-dsn"); v != "" {
		cfg.DBDriver = config.DriverPostgres
		cfg.PostgresDSN = v
	}
	if f.Changed("write-mode") {
		cfg.WriteMode, _ = f.GetString("write-mode")
	}
	if f.Changed("batch-size") {
		cfg.BatchSize, _ = f.GetInt("batch-size")
	}
	return cfg.Validate()
}

func runBuild(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	if err := applyBuildFlags(cmd, env.cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	svc := services.NewBuildService(env.cfg, env.logger, env.metrics)
	svc.Exporter, svc.Store = env.exportTargets(ctx)
	defer svc.Exporter.Close(ctx)

	res, err := svc.Run(ctx)
	if err != nil {
		env.logger.Error("Build failed", zap.Error(err))
		return err
	}
	for _, tr := range res.Tables.Each() {
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %d\n", tr.Name, tr.Count)
	}
	return nil
}
