package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rx-repurpose/config"
	"rx-repurpose/graph"
	"rx-repurpose/metrics"
	"rx-repurpose/models"
	"rx-repurpose/providers/tabular"
	"rx-repurpose/scoring"
)

// Propagationsverfahren.
const (
	MethodHeat = "heat"
	MethodRWR  = "rwr"
)

const (
	seedDiseaseColumn = "disease_id"
	seedGeneColumn    = "gene_symbol"
	seedScoreColumn   = "score"
)

// LoadSeeds liest eine Seed-Tabelle (disease_id, gene_symbol, score) und gruppiert nach Krankheit.
// Zeilen mit nicht-numerischem Score werden übersprungen; ein späteres Duplikat eines Gens überschreibt das frühere Gewicht.
func LoadSeeds(path string) ([]models.SeedSet, error) {
	tbl, err := tabular.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read seeds %s: %w", path, err)
	}
	for _, col := range []string{seedDiseaseColumn, seedGeneColumn, seedScoreColumn} {
		if !tbl.HasAny([]string{col}) {
			return nil, fmt.Errorf("seeds %s: %w: %s", path, ErrMissingColumns, col)
		}
	}

	var sets []models.SeedSet
	byDisease := map[string]int{}
	for _, rec := range tbl.Records {
		disease, okD := FirstPresent(rec, []string{seedDiseaseColumn})
		gene, okG := FirstPresent(rec, []string{seedGeneColumn})
		score := parseFloat(FirstPresent(rec, []string{seedScoreColumn}))
		if !okD || !okG || score == nil {
			continue
		}
		i, ok := byDisease[disease]
		if !ok {
			i = len(sets)
			byDisease[disease] = i
			sets = append(sets, models.SeedSet{DiseaseID: disease, Weights: map[string]float64{}})
		}
		if _, seen := sets[i].Weights[gene]; !seen {
			sets[i].Genes = append(sets[i].Genes, gene)
		}
		sets[i].Weights[gene] = *score
	}
	return sets, nil
}

// ScoringService propagiert Seed-Sets über den gespeicherten Wissensgraphen.
type ScoringService struct {
	DB      *gorm.DB
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Method  string
	Heat    scoring.HeatOptions
	RWR     scoring.RWROptions
	ZScore  scoring.ZScoreOptions
}

// NewScoringService übernimmt Verfahren und Parameter aus der Konfiguration.
func NewScoringService(db *gorm.DB, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *ScoringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoringService{
		DB:      db,
		Logger:  logger,
		Metrics: m,
		Method:  cfg.Method,
		Heat:    scoring.HeatOptions{Alpha: cfg.Alpha, Tolerance: cfg.Tolerance, MaxIter: cfg.HeatMaxIter},
		RWR:     scoring.RWROptions{RestartProb: cfg.RestartProb, Tolerance: cfg.Tolerance, MaxIter: cfg.RWRMaxIter},
		ZScore:  scoring.ZScoreOptions{Iterations: cfg.ZIterations, Seed: cfg.RandomSeed},
	}
}

func (s *ScoringService) loadGraph(ctx context.Context) (*graph.Graph, error) {
	g, err := graph.Load(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Loaded graph", zap.Int("nodes", g.Len()), zap.Int("edges", g.NumEdges()))
	return g, nil
}

// Score propagiert jedes Seed-Set unabhängig; pro Krankheit erscheint jeder Graphknoten genau einmal.
func (s *ScoringService) Score(g *graph.Graph, seeds []models.SeedSet) ([]models.TargetScore, error) {
	out := []models.TargetScore{}
	for _, set := range seeds {
		start := time.Now()
		var res scoring.Result
		switch s.Method {
		case MethodHeat, "":
			res = scoring.HeatDiffusion(g, set.Weights, s.Heat)
		case MethodRWR:
			res = scoring.RandomWalkWithRestart(g, set.Weights, s.RWR)
		default:
			return nil, fmt.Errorf("unknown propagation method %q", s.Method)
		}
		s.Metrics.ObservePropagation(s.methodName(), res.Iterations, res.Converged, time.Since(start))
		if !res.Converged {
			s.Logger.Warn("Propagation did not converge",
				zap.String("disease_id", set.DiseaseID), zap.Int("iterations", res.Iterations))
		}
		for _, ns := range res.Scores {
			out = append(out, models.TargetScore{DiseaseID: set.DiseaseID, TargetID: ns.Node, Score: ns.Score})
		}
	}
	return out, nil
}

func (s *ScoringService) methodName() string {
	if s.Method == "" {
		return MethodHeat
	}
	return s.Method
}

// Run lädt Graph und Seeds, propagiert und schreibt die Score-Tabelle nach outputPath.
// Ohne Ergebnisse wird keine Datei geschrieben.
func (s *ScoringService) Run(ctx context.Context, seedsPath, outputPath string) (int, error) {
	g, err := s.loadGraph(ctx)
	if err != nil {
		return 0, err
	}
	seeds, err := LoadSeeds(seedsPath)
	if err != nil {
		return 0, err
	}
	scores, err := s.Score(g, seeds)
	if err != nil {
		return 0, err
	}
	if len(scores) == 0 {
		s.Logger.Warn("No scores generated", zap.Int("seed_sets", len(seeds)))
		return 0, nil
	}
	if err := writeCSVFile(outputPath, func(w io.Writer) error { return WriteScoresCSV(w, scores) }); err != nil {
		return 0, err
	}
	s.Logger.Info("Wrote scores", zap.String("path", outputPath), zap.Int("rows", len(scores)))
	return len(scores), nil
}

// Modules berechnet Kompaktheit und z-Score jedes Krankheitsmoduls (Seed-Gene in Erstauftrittsreihenfolge).
func (s *ScoringService) Modules(g *graph.Graph, seeds []models.SeedSet) []models.ModuleScore {
	out := make([]models.ModuleScore, 0, len(seeds))
	for _, set := range seeds {
		present := 0
		for _, gene := range set.Genes {
			if g.Has(gene) {
				present++
			}
		}
		out = append(out, models.ModuleScore{
			DiseaseID: set.DiseaseID,
			Nodes:     present,
			MeanPath:  scoring.AverageShortestPath(g, set.Genes),
			ZScore:    scoring.ConnectivityZScore(g, set.Genes, s.ZScore),
		})
	}
	return out
}

// RunModules schreibt die Modul-Statistiken aller Krankheiten nach outputPath.
func (s *ScoringService) RunModules(ctx context.Context, seedsPath, outputPath string) (int, error) {
	g, err := s.loadGraph(ctx)
	if err != nil {
		return 0, err
	}
	seeds, err := LoadSeeds(seedsPath)
	if err != nil {
		return 0, err
	}
	modules := s.Modules(g, seeds)
	if err := writeCSVFile(outputPath, func(w io.Writer) error { return WriteModulesCSV(w, modules) }); err != nil {
		return 0, err
	}
	s.Logger.Info("Wrote module statistics", zap.String("path", outputPath), zap.Int("rows", len(modules)))
	return len(modules), nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// WriteScoresCSV schreibt (disease_id, target_id, score).
func WriteScoresCSV(w io.Writer, scores []models.TargetScore) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"disease_id", "target_id", "score"}); err != nil {
		return err
	}
	for _, s := range scores {
		if err := cw.Write([]string{s.DiseaseID, s.TargetID, formatFloat(s.Score)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteModulesCSV schreibt (disease_id, nodes, mean_path, zscore); NaN bleibt als "NaN" erhalten.
func WriteModulesCSV(w io.Writer, modules []models.ModuleScore) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"disease_id", "nodes", "mean_path", "zscore"}); err != nil {
		return err
	}
	for _, m := range modules {
		if err := cw.Write([]string{m.DiseaseID, strconv.Itoa(m.Nodes), formatFloat(m.MeanPath), formatFloat(m.ZScore)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeCSVFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
