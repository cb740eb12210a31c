package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rx-repurpose/config"
	"rx-repurpose/schema"
	"rx-repurpose/storage"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print or apply the canonical table schema",
	Long: `Gibt das DDL oder das Spalten-Manifest der kanonischen Tabellen aus.

Beispiele:
  rx-repurpose schema ddl
  rx-repurpose schema ddl --apply-dsn postgres://kg@localhost/kg
  rx-repurpose schema manifest`,
}

var schemaDDLCmd = &cobra.Command{
	Use:   "ddl",
	Short: "Print CREATE TABLE statements",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), schema.Render())
		target, _ := cmd.Flags().GetString("apply-dsn")
		if target == "" {
			return nil
		}
		return applySchema(cmd, target)
	},
}

var schemaManifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the table/column manifest as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		raw, err := schema.ManifestJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	},
}

func init() {
	schemaDDLCmd.Flags().String("apply-dsn", "", "apply the DDL to this PostgreSQL DSN or SQLite file")
	schemaCmd.AddCommand(schemaDDLCmd, schemaManifestCmd)
}

// applySchema legt die Tabellen im Ziel an; eine SQLite-Datei wird bei Bedarf erzeugt.
func applySchema(cmd *cobra.Command, target string) error {
	cfg := &config.Config{DBDriver: config.DriverSQLite, SQLitePath: target}
	if storage.IsDSN(target) {
		cfg = &config.Config{DBDriver: config.DriverPostgres, PostgresDSN: target}
	}
	db, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := schema.Apply(cmd.Context(), db); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "schema applied to %s (%d tables)\n", cfg.DBDriver, len(schema.Tables))
	return nil
}
