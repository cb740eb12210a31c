package graph

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gorm.io/gorm"

	"rx-repurpose/models"
)

// Edge ist eine gewichtete, gerichtete Kante zwischen zwei Knotenindizes.
type Edge struct {
	From, To int
	Weight   float64
}

// Graph ist der gerichtete, vorzeichengewichtete Propagationsgraph.
// Knoten stehen in Reihenfolge ihres ersten Auftretens (src vor dst).
// Pro Knotenpaar gibt es höchstens eine Kante; eine spätere Kante überschreibt das Gewicht.
type Graph struct {
	nodes  []string
	index  map[string]int
	out    [][]int
	weight map[[2]int]float64
}

func New() *Graph {
	return &Graph{index: map[string]int{}, weight: map[[2]int]float64{}}
}

func (g *Graph) node(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.index[id] = i
	g.out = append(g.out, nil)
	return i
}

// AddEdge fügt src -> dst ein oder ersetzt deren Gewicht. Selbstschleifen sind erlaubt.
func (g *Graph) AddEdge(src, dst string, w float64) {
	i := g.node(src)
	j := g.node(dst)
	key := [2]int{i, j}
	if _, exists := g.weight[key]; !exists {
		g.out[i] = append(g.out[i], j)
	}
	g.weight[key] = w
}

// FromEdges materialisiert den Graphen aus ProteinEdges; unsignierte Kanten fehlen.
func FromEdges(edges []models.ProteinEdge) *Graph {
	g := New()
	for _, e := range edges {
		w, ok := e.Weight()
		if !ok {
			continue
		}
		g.AddEdge(e.SrcGeneID, e.DstGeneID, w)
	}
	return g
}

// Load liest alle signierten Kanten aus der protein_edge-Tabelle.
func Load(ctx context.Context, db *gorm.DB) (*Graph, error) {
	var edges []models.ProteinEdge
	err := db.WithContext(ctx).
		Table(models.ProteinEdge{}.TableName()).
		Select("src_gene_id", "dst_gene_id", "sign").
		Where("sign IS NOT NULL").
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("load protein_edge: %w", err)
	}
	return FromEdges(edges), nil
}

func (g *Graph) Len() int { return len(g.nodes) }

func (g *Graph) NumEdges() int { return len(g.weight) }

// Nodes gibt eine Kopie der Knotenliste zurück.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

func (g *Graph) Node(i int) string { return g.nodes[i] }

func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

func (g *Graph) Weight(src, dst string) (float64, bool) {
	i, ok := g.index[src]
	if !ok {
		return 0, false
	}
	j, ok := g.index[dst]
	if !ok {
		return 0, false
	}
	w, ok := g.weight[[2]int{i, j}]
	return w, ok
}

// Successors liefert die Nachfolger von i in Einfügereihenfolge. Nicht verändern.
func (g *Graph) Successors(i int) []int { return g.out[i] }

// Edges listet alle Kanten, gruppiert nach Quellknoten.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, len(g.weight))
	for i, succ := range g.out {
		for _, j := range succ {
			edges = append(edges, Edge{From: i, To: j, Weight: g.weight[[2]int{i, j}]})
		}
	}
	return edges
}

// Adjacency baut die dichte Gewichtsmatrix A[i,j] = w(i->j); nil für den leeren Graphen.
func (g *Graph) Adjacency() *mat.Dense {
	n := len(g.nodes)
	if n == 0 {
		return nil
	}
	a := mat.NewDense(n, n, nil)
	for key, w := range g.weight {
		a.Set(key[0], key[1], w)
	}
	return a
}

// Transition normalisiert die Zeilen von A mit ihrer Gewichtssumme (Summe 0 -> 1).
// Negative Gewichte bleiben erhalten, die Zeilen sind daher nicht zwingend stochastisch.
// Bei negativer Zeilensumme kehrt sich das Vorzeichen jeder Kante der Zeile um.
func (g *Graph) Transition() *mat.Dense {
	a := g.Adjacency()
	if a == nil {
		return nil
	}
	n, _ := a.Dims()
	for i := 0; i < n; i++ {
		row := a.RawRowView(i)
		degree := floats.Sum(row)
		if degree == 0 {
			degree = 1
		}
		floats.Scale(1/degree, row)
	}
	return a
}
