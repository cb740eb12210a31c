package models

import "gorm.io/datatypes"

// Vorzeichen einer kausalen Interaktion.
const (
	SignPositive = "+"
	SignNegative = "-"
)

// ProteinEdge modelliert eine gerichtete Interaktion zwischen zwei Genen (src -> dst).
// Parallele Kanten aus unterschiedlichen Quellen bleiben als eigene Zeilen erhalten.
type ProteinEdge struct {
	SrcGeneID string `json:"src_gene_id" gorm:"column:src_gene_id;not null"`
	DstGeneID string `json:"dst_gene_id" gorm:"column:dst_gene_id;not null"`
	Relation  string `json:"relation" gorm:"column:relation;not null"`
	// nil = unsigniert (z.B. STRING), nimmt nicht an der Propagation teil
	Sign   *string `json:"sign" gorm:"column:sign"`
	Direct bool    `json:"direct" gorm:"column:direct"`
	// Evidence: opake Annotationen der Quelle als JSON
	Evidence        datatypes.JSON `json:"evidence" gorm:"column:evidence"`
	Source          string         `json:"source" gorm:"column:source;not null"`
	SourceReference string         `json:"source_reference" gorm:"column:source_reference"`
}

func (ProteinEdge) TableName() string { return "protein_edge" }

// Key liefert den zusammengesetzten Eindeutigkeitsschlüssel.
func (e ProteinEdge) Key() string {
	sign := "\x01"
	if e.Sign != nil {
		sign = *e.Sign
	}
	return joinKey(e.SrcGeneID, e.DstGeneID, e.Relation, sign, e.Source)
}

// Weight gibt das Kantengewicht im Propagationsgraphen zurück; ok ist false für unsignierte Kanten.
func (e ProteinEdge) Weight() (w float64, ok bool) {
	if e.Sign == nil {
		return 0, false
	}
	switch *e.Sign {
	case SignPositive:
		return 1.0, true
	case SignNegative:
		return -1.0, true
	}
	return 0, false
}

// Sign gibt einen Zeiger auf das Vorzeichen zurück.
func Sign(s string) *string { return &s }
