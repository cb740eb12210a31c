package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics bündelt die Prometheus-Collector eines Laufs.
// Alle Methoden sind auf einem nil-Empfänger gefahrlos aufrufbar.
type Metrics struct {
	Registry *prometheus.Registry

	sourceRows     *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	tableRows      *prometheus.GaugeVec
	writeDuration  *prometheus.HistogramVec
	propagation    *prometheus.HistogramVec
	iterations     *prometheus.GaugeVec
	lastBuild      prometheus.Gauge
	buildRuns      *prometheus.CounterVec
}

// New registriert alle Collector in einer eigenen Registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		sourceRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kg_source_rows_total",
			Help: "Anzahl eingelesener Rohzeilen pro Quelle",
		}, []string{"source"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kg_source_failures_total",
			Help: "Übersprungene Quellen (Lesefehler oder fehlende Spalten)",
		}, []string{"source", "reason"}),
		tableRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kg_table_rows",
			Help: "Zeilen pro kanonischer Tabelle im letzten Build",
		}, []string{"table"}),
		writeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kg_write_duration_seconds",
			Help:    "Dauer des Schreibens eines Tabellensatzes",
			Buckets: prometheus.DefBuckets,
		}, []string{"driver", "mode"}),
		propagation: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kg_propagation_duration_seconds",
			Help:    "Dauer einer Propagation pro Seed-Set",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		iterations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kg_propagation_iterations",
			Help: "Iterationen bis zur Konvergenz (letzter Lauf)",
		}, []string{"method", "converged"}),
		lastBuild: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kg_last_build_timestamp_seconds",
			Help: "Zeitpunkt des letzten erfolgreichen Builds",
		}),
		buildRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kg_build_runs_total",
			Help: "Geplante und manuelle Build-Läufe",
		}, []string{"result"}),
	}
	m.Registry.MustRegister(
		m.sourceRows, m.sourceFailures, m.tableRows, m.writeDuration,
		m.propagation, m.iterations, m.lastBuild, m.buildRuns,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) SourceRows(source string, n int) {
	if m == nil {
		return
	}
	m.sourceRows.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) SourceFailed(source, reason string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source, reason).Inc()
}

func (m *Metrics) TableRows(table string, n int) {
	if m == nil {
		return
	}
	m.tableRows.WithLabelValues(table).Set(float64(n))
}

func (m *Metrics) ObserveWrite(driver, mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.writeDuration.WithLabelValues(driver, mode).Observe(d.Seconds())
}

func (m *Metrics) ObservePropagation(method string, iterations int, converged bool, d time.Duration) {
	if m == nil {
		return
	}
	m.propagation.WithLabelValues(method).Observe(d.Seconds())
	label := "false"
	if converged {
		label = "true"
	}
	m.iterations.WithLabelValues(method, label).Set(float64(iterations))
}

// BuildFinished zählt einen Build-Lauf; bei Erfolg wird der Zeitstempel gesetzt.
func (m *Metrics) BuildFinished(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.buildRuns.WithLabelValues("error").Inc()
		return
	}
	m.buildRuns.WithLabelValues("ok").Inc()
	m.lastBuild.SetToCurrentTime()
}

// WriteTextfile schreibt alle Metriken im Format des node_exporter-Textfile-Collectors.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
