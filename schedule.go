package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rx-repurpose/services"
)

var errBuildRunning = errors.New("build already running")

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Rebuild and score the graph on a cron schedule",
	Long: `Startet einen Dienst, der den Wissensgraphen nach CRON_SCHEDULE neu baut und
anschließend KG_SEEDS_PATH propagiert (sofern vorhanden).
Quellpfade und Ziel stammen aus der Umgebung (KG_*_PATH, KG_DB_DRIVER, ...).

Endpunkte:
  GET  /healthz   Lebenszeichen
  GET  /status    Ergebnis des letzten Builds
  POST /build     Build sofort anstoßen
  GET  /metrics   Prometheus-Metriken`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

// buildStatus ist der zuletzt bekannte Zustand des Build-Jobs.
type buildStatus struct {
	Running    bool           `json:"running"`
	LastStart  time.Time      `json:"last_start,omitempty"`
	LastFinish time.Time      `json:"last_finish,omitempty"`
	LastError  string         `json:"last_error,omitempty"`
	Tables     map[string]int `json:"tables,omitempty"`
	Snapshot   string         `json:"snapshot,omitempty"`
	Scores     int            `json:"scores"`
	ScoresLink string         `json:"scores_link,omitempty"`
}

// buildJob serialisiert Build-Läufe aus Cron und HTTP.
type buildJob struct {
	mu     sync.Mutex
	status buildStatus
	run    func(ctx context.Context) (services.BuildResult, error)
	logger *zap.Logger
}

func (j *buildJob) Status() buildStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Trigger startet einen Lauf, sofern keiner aktiv ist.
func (j *buildJob) Trigger(ctx context.Context) error {
	j.mu.Lock()
	if j.status.Running {
		j.mu.Unlock()
		return errBuildRunning
	}
	j.status.Running = true
	j.status.LastStart = time.Now().UTC()
	j.mu.Unlock()

	res, err := j.run(ctx)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.Running = false
	j.status.LastFinish = time.Now().UTC()
	j.status.LastError = ""
	if err != nil {
		j.status.LastError = err.Error()
		j.logger.Error("Build job failed", zap.Error(err))
		return err
	}
	j.status.Snapshot = res.Snapshot
	j.status.Scores = res.Scores
	j.status.ScoresLink = res.ScoresLink
	j.status.Tables = map[string]int{}
	if res.Tables != nil {
		for _, tr := range res.Tables.Each() {
			j.status.Tables[tr.Name] = tr.Count
		}
	}
	j.logger.Info("Build job completed", zap.Duration("took", res.Took))
	return nil
}

// newRouter: manuell angestoßene Builds laufen unter ctx.
func newRouter(ctx context.Context, job *buildJob, env *runtimeEnv) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(env.metrics.Registry, promhttp.HandlerOpts{})))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, job.Status())
	})
	router.POST("/build", func(c *gin.Context) {
		if job.Status().Running {
			c.JSON(http.StatusConflict, gin.H{"error": errBuildRunning.Error()})
			return
		}
		go func() {
			if err := job.Trigger(ctx); err != nil && !errors.Is(err, errBuildRunning) {
				env.logger.Warn("Triggered build failed", zap.Error(err))
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "build started"})
	})
	return router
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	ctx := cmd.Context()
	exporter, store := env.exportTargets(ctx)
	defer exporter.Close(context.Background())

	job := &buildJob{
		logger: env.logger,
		run: func(ctx context.Context) (services.BuildResult, error) {
			svc := services.NewBuildService(env.cfg, env.logger, env.metrics)
			svc.Exporter, svc.Store = exporter, store
			res, err := svc.Run(ctx)
			if err != nil {
				return res, err
			}
			res.Scores, res.ScoresLink, err = svc.Score(ctx)
			return res, err
		},
	}

	cronScheduler := cron.New()
	if _, err := cronScheduler.AddFunc(env.cfg.CronSchedule, func() {
		env.logger.Info("Running scheduled build job...")
		_ = job.Trigger(ctx)
	}); err != nil {
		return err
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	env.logger.Info("Starting server", zap.String("port", env.cfg.HTTPPort), zap.String("schedule", env.cfg.CronSchedule))
	srv := &http.Server{
		Addr:              ":" + env.cfg.HTTPPort,
		Handler:           newRouter(ctx, job, env),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
