package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"rx-repurpose/config"
	"rx-repurpose/metrics"
	"rx-repurpose/models"
	"rx-repurpose/services"
)

func TestRootCmd_Definition(t *testing.T) {
	assert.Equal(t, "rx-repurpose", rootCmd.Use)

	found := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range []string{"build", "score", "module", "schema", "schedule"} {
		assert.True(t, found[name], "%s subcommand should exist", name)
	}
}

func TestBuildCmd_Flags(t *testing.T) {
	f := buildCmd.Flags()
	for _, s := range sourceFlags {
		flag := f.Lookup(s.name)
		require.NotNil(t, flag, s.name)
		assert.Equal(t, "", flag.DefValue)
	}
	assert.Len(t, sourceFlags, 14)
	assert.Equal(t, config.WriteModeReplace, f.Lookup("write-mode").DefValue)
	assert.Equal(t, "1000", f.Lookup("batch-size").DefValue)
	assert.NotNil(t, f.Lookup("sqlite-path"))
	assert.NotNil(t, f.Lookup("postgres-dsn"))
}

func TestScoreCmd_Flags(t *testing.T) {
	f := scoreCmd.Flags()
	assert.Equal(t, services.MethodHeat, f.Lookup("method").DefValue)
	for _, name := range []string{"graph", "seeds", "output"} {
		assert.NotNil(t, f.Lookup(name), name)
	}

	m := moduleCmd.Flags()
	assert.Equal(t, "1000", m.Lookup("iterations").DefValue)
	assert.Equal(t, "42", m.Lookup("seed").DefValue)
}

func baseConfig() *config.Config {
	return &config.Config{
		DBDriver:    config.DriverSQLite,
		SQLitePath:  "data/kg.sqlite",
		WriteMode:   config.WriteModeReplace,
		BatchSize:   1000,
		Method:      services.MethodHeat,
		Alpha:       0.7,
		RestartProb: 0.3,
	}
}

func TestApplyBuildFlags(t *testing.T) {
	t.Run("overrides explicit flags", func(t *testing.T) {
		cmd := &cobra.Command{Use: "build"}
		registerBuildFlags(cmd)
		require.NoError(t, cmd.ParseFlags([]string{
			"--omnipath", "omni.tsv", "--sider", "sider.parquet",
			"--postgres-dsn", "postgres://kg@localhost/kg",
			"--write-mode", "append", "--batch-size", "50",
		}))

		cfg := baseConfig()
		cfg.StringPath = "from-env.tsv"
		require.NoError(t, applyBuildFlags(cmd, cfg))
		assert.Equal(t, "omni.tsv", cfg.OmniPathPath)
		assert.Equal(t, "sider.parquet", cfg.SIDERPath)
		assert.Equal(t, "from-env.tsv", cfg.StringPath)
		assert.Equal(t, config.DriverPostgres, cfg.DBDriver)
		assert.Equal(t, "postgres://kg@localhost/kg", cfg.PostgresDSN)
		assert.Equal(t, config.WriteModeAppend, cfg.WriteMode)
		assert.Equal(t, 50, cfg.BatchSize)
	})

	t.Run("defaults keep config", func(t *testing.T) {
		cmd := &cobra.Command{Use: "build"}
		registerBuildFlags(cmd)
		require.NoError(t, cmd.ParseFlags(nil))

		cfg := baseConfig()
		cfg.WriteMode = config.WriteModeAppend
		cfg.BatchSize = 10
		require.NoError(t, applyBuildFlags(cmd, cfg))
		assert.Equal(t, config.WriteModeAppend, cfg.WriteMode)
		assert.Equal(t, 10, cfg.BatchSize)
		assert.Equal(t, config.DriverSQLite, cfg.DBDriver)
	})

	t.Run("invalid write mode", func(t *testing.T) {
		cmd := &cobra.Command{Use: "build"}
		registerBuildFlags(cmd)
		require.NoError(t, cmd.ParseFlags([]string{"--write-mode", "upsert"}))
		assert.Error(t, applyBuildFlags(cmd, baseConfig()))
	})
}

func TestSchemaCmd(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		_ = schemaDDLCmd.Flags().Set("apply-dsn", "")
	})

	rootCmd.SetArgs([]string{"schema", "ddl"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "CREATE TABLE IF NOT EXISTS protein_edge")

	out.Reset()
	rootCmd.SetArgs([]string{"schema", "manifest"})
	require.NoError(t, rootCmd.Execute())
	var manifest map[string]map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &manifest))
	assert.Contains(t, manifest, "drug_target")

	target := filepath.Join(t.TempDir(), "kg.sqlite")
	rootCmd.SetArgs([]string{"schema", "ddl", "--apply-dsn", target})
	require.NoError(t, rootCmd.Execute())
	_, err := os.Stat(target)
	assert.NoError(t, err)
}

func TestBuildJob(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	job := &buildJob{
		logger: zaptest.NewLogger(t),
		run: func(context.Context) (services.BuildResult, error) {
			close(started)
			<-release
			tables := models.NewTables()
			tables.Genes = []models.Gene{{GeneID: "G1"}}
			return services.BuildResult{Tables: tables, Snapshot: "s3://kg/snap"}, nil
		},
	}

	done := make(chan error)
	go func() { done <- job.Trigger(context.Background()) }()
	<-started
	assert.True(t, job.Status().Running)
	assert.ErrorIs(t, job.Trigger(context.Background()), errBuildRunning)

	close(release)
	require.NoError(t, <-done)
	status := job.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.Tables["gene"])
	assert.Equal(t, "s3://kg/snap", status.Snapshot)

	job.run = func(context.Context) (services.BuildResult, error) {
		return services.BuildResult{}, errors.New("disk full")
	}
	assert.Error(t, job.Trigger(context.Background()))
	assert.Equal(t, "disk full", job.Status().LastError)
	assert.Equal(t, 1, job.Status().Tables["gene"])
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := &runtimeEnv{logger: zaptest.NewLogger(t), metrics: metrics.New()}
	env.metrics.TableRows("gene", 3)
	job := &buildJob{logger: env.logger}
	router := newRouter(context.Background(), job, env)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":false`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `kg_table_rows{table="gene"} 3`)

	job.status.Running = true
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/build", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouterBuildUsesServerContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	// die Build-Goroutine loggt unter Umständen erst nach Testende
	env := &runtimeEnv{logger: zap.NewNop(), metrics: metrics.New()}
	got := make(chan error, 1)
	job := &buildJob{
		logger: env.logger,
		run: func(ctx context.Context) (services.BuildResult, error) {
			got <- ctx.Err()
			return services.BuildResult{}, ctx.Err()
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := httptest.NewRecorder()
	newRouter(ctx, job, env).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/build", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)

	select {
	case err := <-got:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("build was not started")
	}
}

func TestScoringRunClose(t *testing.T) {
	t.Setenv("KG_DB_DRIVER", "sqlite")
	target := filepath.Join(t.TempDir(), "kg.sqlite")
	rootCmd.SetArgs([]string{"schema", "ddl", "--apply-dsn", target})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		_ = schemaDDLCmd.Flags().Set("apply-dsn", "")
		_ = scoreCmd.Flags().Set("graph", "")
	})
	require.NoError(t, rootCmd.Execute())

	require.NoError(t, scoreCmd.Flags().Set("graph", target))
	run, err := prepareScoring(scoreCmd)
	require.NoError(t, err)
	require.NoError(t, run.db.Exec("SELECT 1").Error)

	run.Close()
	assert.Error(t, run.db.Exec("SELECT 1").Error)
}
