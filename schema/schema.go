package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Column beschreibt eine Spalte mit portablem SQL-Typ (SQLite und PostgreSQL).
type Column struct {
	Name        string
	Type        string
	Constraints []string
}

func (c Column) Render() string {
	parts := append([]string{c.Name, c.Type}, c.Constraints...)
	return strings.Join(parts, " ")
}

// Index ist ein einfacher Sekundärindex.
type Index struct {
	Name    string
	Columns []string
}

// Table ist eine Tabellendefinition samt Indizes.
type Table struct {
	Name    string
	Columns []Column
	Indexes []Index
}

// CreateStatement rendert das idempotente CREATE TABLE.
func (t Table) CreateStatement() string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Render()
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", t.Name, strings.Join(cols, ",\n    "))
}

func (t Table) indexStatements() []string {
	out := make([]string, len(t.Indexes))
	for i, ix := range t.Indexes {
		out[i] = fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", ix.Name, t.Name, strings.Join(ix.Columns, ", "))
	}
	return out
}

var notNull = []string{"NOT NULL"}

func text(name string) Column     { return Column{Name: name, Type: "TEXT"} }
func required(name string) Column { return Column{Name: name, Type: "TEXT", Constraints: notNull} }
func double(name string) Column   { return Column{Name: name, Type: "DOUBLE PRECISION"} }

// Tables ist das vollständige Schema in Anlagereihenfolge.
// Keine Primärschlüssel: append-Läufe dürfen Duplikate erzeugen, Eindeutigkeit sichert der Build.
var Tables = []Table{
	{
		Name: "gene",
		Columns: []Column{
			required("gene_id"),
			required("symbol"),
			{Name: "species", Type: "TEXT", Constraints: []string{"DEFAULT 'Homo sapiens'"}},
		},
		Indexes: []Index{{"ix_gene_symbol", []string{"symbol"}}},
	},
	{
		Name: "protein_edge",
		Columns: []Column{
			required("src_gene_id"),
			required("dst_gene_id"),
			required("relation"),
			text("sign"),
			{Name: "direct", Type: "BOOLEAN", Constraints: []string{"DEFAULT FALSE"}},
			text("evidence"),
			required("source"),
			text("source_reference"),
		},
		Indexes: []Index{
			{"ix_protein_edge_src", []string{"src_gene_id"}},
			{"ix_protein_edge_dst", []string{"dst_gene_id"}},
			{"ix_protein_edge_source", []string{"source"}},
		},
	},
	{
		Name: "pathway_member",
		Columns: []Column{
			required("pathway_id"),
			required("gene_id"),
			text("pathway_name"),
			required("source"),
			text("evidence"),
		},
		Indexes: []Index{
			{"ix_pathway_member_pathway", []string{"pathway_id"}},
			{"ix_pathway_member_gene", []string{"gene_id"}},
		},
	},
	{
		Name: "disease_gene",
		Columns: []Column{
			required("disease_id"),
			required("gene_id"),
			required("evidence_type"),
			double("score"),
			required("source"),
			text("evidence"),
		},
		Indexes: []Index{
			{"ix_disease_gene_disease", []string{"disease_id"}},
			{"ix_disease_gene_gene", []string{"gene_id"}},
		},
	},
	{
		Name: "tissue_expr",
		Columns: []Column{
			required("gene_id"),
			required("tissue"),
			double("expression"),
			{Name: "unit", Type: "TEXT", Constraints: []string{"DEFAULT 'TPM'"}},
			required("source"),
			text("evidence"),
		},
		Indexes: []Index{
			{"ix_tissue_expr_gene", []string{"gene_id"}},
			{"ix_tissue_expr_tissue", []string{"tissue"}},
		},
	},
	{
		Name: "drug",
		Columns: []Column{
			required("drug_id"),
			required("preferred_name"),
			text("synonyms"),
			required("source"),
		},
		Indexes: []Index{{"ix_drug_drug", []string{"drug_id"}}},
	},
	{
		Name: "drug_target",
		Columns: []Column{
			required("drug_id"),
			required("target_id"),
			text("target_type"),
			text("action"),
			double("affinity"),
			text("affinity_unit"),
			text("moa_category"),
			required("source"),
			text("evidence"),
		},
		Indexes: []Index{
			{"ix_drug_target_drug", []string{"drug_id"}},
			{"ix_drug_target_target", []string{"target_id"}},
		},
	},
	{
		Name: "safety_ae",
		Columns: []Column{
			required("drug_id"),
			required("adverse_event"),
			{Name: "report_count", Type: "BIGINT"},
			double("proportional_reporting_ratio"),
			required("source"),
			text("evidence"),
		},
		Indexes: []Index{{"ix_safety_ae_drug", []string{"drug_id"}}},
	},
	{
		// Wird von keinem Loader befüllt; Ziel für Label-Extraktion.
		Name: "label_section",
		Columns: []Column{
			required("drug_id"),
			required("section"),
			required("text"),
			required("source"),
			text("extracted_at"),
		},
	},
	{
		Name: "trial",
		Columns: []Column{
			required("nct_id"),
			required("title"),
			text("status"),
			text("phase"),
			text("conditions"),
			{Name: "enrollment", Type: "BIGINT"},
			text("interventions"),
			text("last_updated"),
			required("source"),
		},
		Indexes: []Index{
			{"ix_trial_status", []string{"status"}},
			{"ix_trial_phase", []string{"phase"}},
		},
	},
}

// Lookup sucht eine Tabellendefinition nach Namen.
func Lookup(name string) (Table, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Statements liefert alle DDL-Anweisungen (ohne abschließendes Semikolon) in Ausführungsreihenfolge.
func Statements() []string {
	var out []string
	for _, t := range Tables {
		out = append(out, t.CreateStatement())
		out = append(out, t.indexStatements()...)
	}
	return out
}

// Render gibt das Schema als SQL-Skript aus.
func Render() string {
	stmts := Statements()
	for i, s := range stmts {
		stmts[i] = s + ";"
	}
	return strings.Join(stmts, "\n\n") + "\n"
}

// Manifest bildet Tabelle -> Spalte -> Typ ab.
func Manifest() map[string]map[string]string {
	out := make(map[string]map[string]string, len(Tables))
	for _, t := range Tables {
		cols := make(map[string]string, len(t.Columns))
		for _, c := range t.Columns {
			cols[c.Name] = c.Type
		}
		out[t.Name] = cols
	}
	return out
}

// ManifestJSON serialisiert das Manifest eingerückt mit sortierten Schlüsseln.
func ManifestJSON() ([]byte, error) {
	raw, err := json.MarshalIndent(Manifest(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(raw, '\n'), nil
}

// Apply legt alle Tabellen und Indizes an; mehrfach ausführbar.
func Apply(ctx context.Context, db *gorm.DB) error {
	for _, stmt := range Statements() {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
