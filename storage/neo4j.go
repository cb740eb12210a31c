package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"rx-repurpose/config"
	"rx-repurpose/models"
)

const (
	geneNodeQuery = `
UNWIND $rows AS n
MERGE (g:Gene {id: n.id})
SET g.symbol = n.symbol, g.species = n.species`

	// sign gehört zum MERGE-Schlüssel, sonst fallen Kanten mit entgegengesetztem Vorzeichen zusammen.
	// Neo4j erlaubt kein null im Muster: unsignierte Kanten tragen sign = ''.
	interactionQuery = `
UNWIND $rows AS r
MERGE (a:Gene {id: r.src})
MERGE (b:Gene {id: r.dst})
MERGE (a)-[e:INTERACTS {relation: r.relation, source: r.source, sign: coalesce(r.sign, '')}]->(b)
SET e.direct = r.direct, e.source_reference = r.source_reference`

	drugTargetQuery = `
UNWIND $rows AS r
MERGE (d:Drug {id: r.drug})
MERGE (g:Gene {id: r.target})
MERGE (d)-[t:TARGETS {source: r.source}]->(g)
SET t.action = r.action, t.affinity = r.affinity, t.affinity_unit = r.affinity_unit`
)

// GraphExporter spiegelt den Wissensgraphen optional nach Neo4j.
type GraphExporter struct {
	Driver    neo4j.DriverWithContext
	Database  string
	BatchSize int
	Logger    *zap.Logger
}

// NewGraphExporter verbindet sich mit Neo4j; ohne NEO4J_URI wird (nil, nil) zurückgegeben.
func NewGraphExporter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*GraphExporter, error) {
	if cfg.Neo4jURI == "" {
		return nil, nil
	}
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""), func(c *neo4j.Config) {
		c.SocketConnectTimeout = 10 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}
	return &GraphExporter{
		Driver:    driver,
		Database:  cfg.Neo4jDatabase,
		BatchSize: cfg.BatchSize,
		Logger:    logger.With(zap.String("component", "neo4j")),
	}, nil
}

func (g *GraphExporter) Close(ctx context.Context) error {
	if g == nil || g.Driver == nil {
		return nil
	}
	return g.Driver.Close(ctx)
}

// Export schreibt Gene, Interaktionen und Wirkstoff-Targets idempotent (MERGE) in Batches.
func (g *GraphExporter) Export(ctx context.Context, tables *models.Tables) error {
	if g == nil || g.Driver == nil {
		return nil
	}
	session := g.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: g.Database,
	})
	defer session.Close(ctx)

	if res, err := session.Run(ctx, `CREATE CONSTRAINT gene_id_unique IF NOT EXISTS FOR (g:Gene) REQUIRE g.id IS UNIQUE`, nil); err != nil {
		g.Logger.Warn("neo4j schema init failed (continuing)", zap.Error(err))
	} else {
		_, _ = res.Consume(ctx)
	}

	steps := []struct {
		name  string
		query string
		rows  []map[string]any
	}{
		{"genes", geneNodeQuery, GeneRows(tables.Genes)},
		{"interactions", interactionQuery, InteractionRows(tables.ProteinEdges)},
		{"drug_targets", drugTargetQuery, DrugTargetRows(tables.DrugTargets)},
	}
	for _, step := range steps {
		for _, batch := range Batches(step.rows, g.BatchSize) {
			_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
				res, err := tx.Run(ctx, step.query, map[string]any{"rows": batch})
				if err != nil {
					return nil, err
				}
				return res.Consume(ctx)
			})
			if err != nil {
				return fmt.Errorf("neo4j export %s: %w", step.name, err)
			}
		}
		g.Logger.Info("Exported to neo4j", zap.String("step", step.name), zap.Int("rows", len(step.rows)))
	}
	return nil
}

// GeneRows baut die UNWIND-Parameter für Gen-Knoten.
func GeneRows(genes []models.Gene) []map[string]any {
	rows := make([]map[string]any, 0, len(genes))
	for _, gene := range genes {
		rows = append(rows, map[string]any{
			"id":      gene.GeneID,
			"symbol":  gene.Symbol,
			"species": gene.Species,
		})
	}
	return rows
}

// InteractionRows baut die Parameter für INTERACTS-Kanten; unsignierte Kanten erhalten sign = nil.
func InteractionRows(edges []models.ProteinEdge) []map[string]any {
	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		var sign any
		if e.Sign != nil {
			sign = *e.Sign
		}
		rows = append(rows, map[string]any{
			"src":              e.SrcGeneID,
			"dst":              e.DstGeneID,
			"relation":         e.Relation,
			"sign":             sign,
			"direct":           e.Direct,
			"source":           e.Source,
			"source_reference": e.SourceReference,
		})
	}
	return rows
}

func DrugTargetRows(targets []models.DrugTarget) []map[string]any {
	rows := make([]map[string]any, 0, len(targets))
	for _, t := range targets {
		var affinity any
		if t.Affinity != nil {
			affinity = *t.Affinity
		}
		rows = append(rows, map[string]any{
			"drug":          t.DrugID,
			"target":        t.TargetID,
			"source":        t.Source,
			"action":        t.Action,
			"affinity":      affinity,
			"affinity_unit": t.AffinityUnit,
		})
	}
	return rows
}

// Batches teilt rows in Blöcke der Größe size (size <= 0 -> 1000).
func Batches(rows []map[string]any, size int) [][]map[string]any {
	if size <= 0 {
		size = 1000
	}
	var out [][]map[string]any
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}
