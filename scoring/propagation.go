package scoring

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"rx-repurpose/graph"
)

// NodeScore ist der propagierte Score eines Knotens.
type NodeScore struct {
	Node  string
	Score float64
}

// Result enthält alle Knoten absteigend nach Score sortiert.
type Result struct {
	Scores     []NodeScore
	Iterations int
	Converged  bool
}

// HeatOptions parametrisiert die Wärmediffusion.
type HeatOptions struct {
	Alpha     float64
	Tolerance float64
	MaxIter   int
}

func DefaultHeatOptions() HeatOptions {
	return HeatOptions{Alpha: 0.7, Tolerance: 1e-6, MaxIter: 100}
}

// RWROptions parametrisiert den Random Walk with Restart.
type RWROptions struct {
	RestartProb float64
	Tolerance   float64
	MaxIter     int
}

func DefaultRWROptions() RWROptions {
	return RWROptions{RestartProb: 0.3, Tolerance: 1e-6, MaxIter: 200}
}

// HeatDiffusion iteriert scores <- alpha*seed + (1-alpha)*P^T*scores bis zur Konvergenz
// (L1-Differenz < Tolerance) oder bis MaxIter. Nicht-Konvergenz ist kein Fehler.
func HeatDiffusion(g *graph.Graph, seeds map[string]float64, opts HeatOptions) Result {
	if g.Len() == 0 {
		return Result{Scores: []NodeScore{}, Converged: true}
	}
	seed := seedVector(g, seeds, 1)
	return iterate(g, seed, opts.Alpha, 1-opts.Alpha, opts.Tolerance, opts.MaxIter)
}

// RandomWalkWithRestart iteriert scores <- (1-r)*P^T*scores + r*seed mit auf Summe 1
// normiertem Seed-Vektor. Eine Seed-Summe von 0 bleibt unnormiert.
func RandomWalkWithRestart(g *graph.Graph, seeds map[string]float64, opts RWROptions) Result {
	if g.Len() == 0 {
		return Result{Scores: []NodeScore{}, Converged: true}
	}
	total := 0.0
	for _, w := range seeds {
		total += w
	}
	if total == 0 {
		total = 1
	}
	seed := seedVector(g, seeds, total)
	return iterate(g, seed, opts.RestartProb, 1-opts.RestartProb, opts.Tolerance, opts.MaxIter)
}

// seedVector legt die Gewichte auf die Knotenindizes; unbekannte Gene werden ignoriert.
func seedVector(g *graph.Graph, seeds map[string]float64, norm float64) []float64 {
	seed := make([]float64, g.Len())
	for gene, w := range seeds {
		if i, ok := g.Index(gene); ok {
			seed[i] = w / norm
		}
	}
	return seed
}

// iterate berechnet x <- keep*seed + spread*P^T*x.
func iterate(g *graph.Graph, seed []float64, keep, spread, tol float64, maxIter int) Result {
	n := g.Len()
	pt := g.Transition().T()
	seedVec := mat.NewVecDense(n, seed)

	scores := mat.NewVecDense(n, nil)
	scores.CloneFromVec(seedVec)
	updated := mat.NewVecDense(n, nil)

	res := Result{}
	for it := 0; it < maxIter; it++ {
		updated.MulVec(pt, scores)
		updated.ScaleVec(spread, updated)
		updated.AddScaledVec(updated, keep, seedVec)
		delta := floats.Distance(updated.RawVector().Data, scores.RawVector().Data, 1)
		scores.CopyVec(updated)
		res.Iterations = it + 1
		if delta < tol {
			res.Converged = true
			break
		}
	}

	res.Scores = rank(g, scores.RawVector().Data)
	return res
}

// rank sortiert stabil absteigend; bei Gleichstand zählt die Knotenreihenfolge.
func rank(g *graph.Graph, values []float64) []NodeScore {
	out := make([]NodeScore, len(values))
	for i, v := range values {
		out[i] = NodeScore{Node: g.Node(i), Score: v}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// LabeledScore ist eine Zeile gestapelter Ergebnisse mehrerer Seed-Sets.
type LabeledScore struct {
	SeedSet string
	Node    string
	Score   float64
}

// PropagateMultiple propagiert jedes Seed-Set unabhängig (Wärmediffusion) und stapelt
// die Ergebnisse in lexikographischer Reihenfolge der Labels.
func PropagateMultiple(g *graph.Graph, seedSets map[string]map[string]float64, opts HeatOptions) []LabeledScore {
	labels := make([]string, 0, len(seedSets))
	for label := range seedSets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := []LabeledScore{}
	for _, label := range labels {
		for _, s := range HeatDiffusion(g, seedSets[label], opts).Scores {
			out = append(out, LabeledScore{SeedSet: label, Node: s.Node, Score: s.Score})
		}
	}
	return out
}
