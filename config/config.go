package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Unterstützte Speicherziele.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Persistenz-Policies pro Ziel.
const (
	WriteModeReplace = "replace"
	WriteModeAppend  = "append"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
// CLI-Flags überschreiben einzelne Felder nach dem Laden.
type Config struct {
	DBDriver   string `envconfig:"KG_DB_DRIVER" default:"sqlite"`
	SQLitePath string `envconfig:"KG_SQLITE_PATH" default:"data/knowledge_graph.sqlite"`
	// Optionaler vollständiger DSN; hat Vorrang vor den Einzelteilen.
	PostgresDSN string `envconfig:"KG_POSTGRES_DSN"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      int    `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"knowledge_graph"`

	// Quell-Extrakte; leer = Quelle nicht konfiguriert
	OmniPathPath       string `envconfig:"KG_OMNIPATH_PATH"`
	SignorPath         string `envconfig:"KG_SIGNOR_PATH"`
	StringPath         string `envconfig:"KG_STRING_PATH"`
	DrugCentralPath    string `envconfig:"KG_DRUGCENTRAL_PATH"`
	IUPHARPath         string `envconfig:"KG_IUPHAR_PATH"`
	ReactomePath       string `envconfig:"KG_REACTOME_PATH"`
	OpenTargetsPath    string `envconfig:"KG_OPENTARGETS_PATH"`
	GWASPath           string `envconfig:"KG_GWAS_PATH"`
	DisGeNETPath       string `envconfig:"KG_DISGENET_PATH"`
	HPAPath            string `envconfig:"KG_HPA_PATH"`
	PLAEPath           string `envconfig:"KG_PLAE_PATH"`
	RxNormPath         string `envconfig:"KG_RXNORM_PATH"`
	SIDERPath          string `envconfig:"KG_SIDER_PATH"`
	ClinicalTrialsPath string `envconfig:"KG_CLINICALTRIALS_PATH"`

	WriteMode string `envconfig:"KG_WRITE_MODE" default:"replace"`
	BatchSize int    `envconfig:"KG_BATCH_SIZE" default:"1000"`

	// Propagation
	Method       string  `envconfig:"KG_METHOD" default:"heat"`
	Alpha        float64 `envconfig:"KG_ALPHA" default:"0.7"`
	RestartProb  float64 `envconfig:"KG_RESTART_PROB" default:"0.3"`
	Tolerance    float64 `envconfig:"KG_TOLERANCE" default:"1e-6"`
	HeatMaxIter  int     `envconfig:"KG_HEAT_MAX_ITER" default:"100"`
	RWRMaxIter   int     `envconfig:"KG_RWR_MAX_ITER" default:"200"`
	ZIterations  int     `envconfig:"KG_ZSCORE_ITERATIONS" default:"1000"`
	RandomSeed   int64   `envconfig:"KG_RANDOM_SEED" default:"42"`
	SeedsPath    string  `envconfig:"KG_SEEDS_PATH" default:"disease_seeds.csv"`
	ScoresOutput string  `envconfig:"KG_SCORES_OUTPUT" default:"target_scores.csv"`

	// Snapshot-Upload nach S3 (optional, leer = deaktiviert)
	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"eu-central-1"`
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"rx-repurpose"`
	// Anzahl gehaltener Backups im Bucket
	KeepBackups int `envconfig:"KEEP_BACKUPS" default:"4"`

	// Graph-Export nach Neo4j (optional)
	Neo4jURI      string `envconfig:"NEO4J_URI"`
	Neo4jUser     string `envconfig:"NEO4J_USER" default:"neo4j"`
	Neo4jPassword string `envconfig:"NEO4J_PASSWORD"`
	Neo4jDatabase string `envconfig:"NEO4J_DATABASE"`

	MetricsTextfile string `envconfig:"METRICS_TEXTFILE"`
	CronSchedule    string `envconfig:"CRON_SCHEDULE" default:"0 3 * * *"`
	HTTPPort        string `envconfig:"HTTP_PORT" default:"4242"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	if c.PostgresDSN != "" {
		return c.PostgresDSN
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// S3Enabled meldet, ob ein Bucket für Snapshots konfiguriert ist.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3URL != ""
}

// Validate prüft Werte, die envconfig nicht selbst prüfen kann.
func (c *Config) Validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.WriteMode = strings.ToLower(strings.TrimSpace(c.WriteMode))
	c.Method = strings.ToLower(strings.TrimSpace(c.Method))

	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown KG_DB_DRIVER %q", c.DBDriver)
	}
	switch c.WriteMode {
	case WriteModeReplace, WriteModeAppend:
	default:
		return fmt.Errorf("unknown KG_WRITE_MODE %q", c.WriteMode)
	}
	switch c.Method {
	case "heat", "rwr":
	default:
		return fmt.Errorf("unknown KG_METHOD %q", c.Method)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("KG_BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.KeepBackups < 0 {
		return fmt.Errorf("KEEP_BACKUPS must not be negative, got %d", c.KeepBackups)
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("KG_ALPHA must lie in [0,1], got %g", c.Alpha)
	}
	if c.RestartProb < 0 || c.RestartProb > 1 {
		return fmt.Errorf("KG_RESTART_PROB must lie in [0,1], got %g", c.RestartProb)
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, c.Validate()
}
