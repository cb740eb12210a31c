package scoring

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"

	"rx-repurpose/graph"
)

// ZScoreOptions steuert das Nullmodell der Interconnectivity-Signifikanz.
type ZScoreOptions struct {
	Iterations int
	Seed       int64
}

func DefaultZScoreOptions() ZScoreOptions {
	return ZScoreOptions{Iterations: 1000, Seed: 42}
}

// moduleIndices liefert die im Graphen vorhandenen Modulknoten ohne Duplikate.
func moduleIndices(g *graph.Graph, nodes []string) []int {
	seen := make(map[int]bool, len(nodes))
	idx := make([]int, 0, len(nodes))
	for _, n := range nodes {
		i, ok := g.Index(n)
		if !ok || seen[i] {
			continue
		}
		seen[i] = true
		idx = append(idx, i)
	}
	return idx
}

// hops berechnet die Sprungdistanzen ab src per Breitensuche (-1 = unerreichbar).
func hops(g *graph.Graph, src int, dist []int, queue []int) []int {
	for i := range dist {
		dist[i] = -1
	}
	dist[src] = 0
	queue = append(queue[:0], src)
	for head := 0; head < len(queue); head++ {
		u := queue[head]
		for _, v := range g.Successors(u) {
			if dist[v] < 0 {
				dist[v] = dist[u] + 1
				queue = append(queue, v)
			}
		}
	}
	return queue
}

// meanPath mittelt die gerichteten Distanzen a -> b über alle Paare (i < j) der Liste.
// Unerreichbare Paare fallen heraus; sind alle unerreichbar, ist das Ergebnis +Inf.
func meanPath(g *graph.Graph, idx []int) float64 {
	if len(idx) < 2 {
		return math.NaN()
	}
	dist := make([]int, g.Len())
	var queue []int
	sum, count := 0.0, 0
	for i := 0; i < len(idx)-1; i++ {
		queue = hops(g, idx[i], dist, queue)
		for _, b := range idx[i+1:] {
			if d := dist[b]; d >= 0 {
				sum += float64(d)
				count++
			}
		}
	}
	if count == 0 {
		return math.Inf(1)
	}
	return sum / float64(count)
}

// AverageShortestPath ist die mittlere Pfadlänge (in Kanten) zwischen den Modulknoten.
// Nicht im Graphen enthaltene Knoten werden ignoriert; unter zwei Knoten ist das Ergebnis NaN.
func AverageShortestPath(g *graph.Graph, nodes []string) float64 {
	return meanPath(g, moduleIndices(g, nodes))
}

// ConnectivityZScore vergleicht die beobachtete Pfadlänge mit gleich großen Zufallsmengen.
// Entartete Fälle (beobachtet NaN/Inf, Varianz 0, ungültige Zufallsverteilung) ergeben NaN.
func ConnectivityZScore(g *graph.Graph, nodes []string, opts ZScoreOptions) float64 {
	idx := moduleIndices(g, nodes)
	observed := meanPath(g, idx)
	if math.IsNaN(observed) || math.IsInf(observed, 0) {
		return math.NaN()
	}
	if opts.Iterations <= 0 {
		return math.NaN()
	}

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), 0))
	pool := make([]int, g.Len())
	for i := range pool {
		pool[i] = i
	}
	k := len(idx)
	random := make([]float64, 0, opts.Iterations)
	for it := 0; it < opts.Iterations; it++ {
		// partielles Fisher-Yates: die ersten k Einträge sind die Stichprobe
		for i := 0; i < k; i++ {
			j := i + rng.IntN(len(pool)-i)
			pool[i], pool[j] = pool[j], pool[i]
		}
		v := meanPath(g, pool[:k])
		if math.IsNaN(v) {
			continue
		}
		random = append(random, v)
	}
	if len(random) == 0 {
		return math.NaN()
	}
	for _, v := range random {
		if math.IsInf(v, 0) {
			return math.NaN()
		}
	}

	mu, variance := stat.MeanVariance(random, nil)
	n := float64(len(random))
	// Populationsvarianz statt Stichprobenvarianz
	if n > 1 {
		variance *= (n - 1) / n
	} else {
		variance = 0
	}
	sigma := math.Sqrt(variance)
	if sigma == 0 || math.IsNaN(sigma) {
		return math.NaN()
	}
	return (observed - mu) / sigma
}

// ModuleEdge ist eine Kante zwischen zwei Modulknoten.
type ModuleEdge struct {
	Src    string
	Dst    string
	Weight float64
}

// ModuleEdges listet alle Kanten des vom Modul induzierten Teilgraphen.
func ModuleEdges(g *graph.Graph, nodes []string) []ModuleEdge {
	in := map[int]bool{}
	for _, i := range moduleIndices(g, nodes) {
		in[i] = true
	}
	out := []ModuleEdge{}
	for _, e := range g.Edges() {
		if in[e.From] && in[e.To] {
			out = append(out, ModuleEdge{Src: g.Node(e.From), Dst: g.Node(e.To), Weight: e.Weight})
		}
	}
	return out
}
