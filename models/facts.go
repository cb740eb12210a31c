package models

import (
	"strings"

	"gorm.io/datatypes"
)

// DefaultSpecies wird für Gene ohne explizite Spezies gesetzt.
const DefaultSpecies = "Homo sapiens"

// Gene ist ein Knoten des Wissensgraphen; Identität = Rohbezeichner der Quelle.
type Gene struct {
	GeneID  string `json:"gene_id" gorm:"column:gene_id;not null"`
	Symbol  string `json:"symbol" gorm:"column:symbol;not null"`
	Species string `json:"species" gorm:"column:species"`
}

func (Gene) TableName() string { return "gene" }

func (g Gene) Key() string { return g.GeneID }

// PathwayMember ordnet ein Gen einem Pathway zu (z.B. Reactome).
type PathwayMember struct {
	PathwayID   string         `json:"pathway_id" gorm:"column:pathway_id;not null"`
	GeneID      string         `json:"gene_id" gorm:"column:gene_id;not null"`
	PathwayName string         `json:"pathway_name" gorm:"column:pathway_name"`
	Source      string         `json:"source" gorm:"column:source;not null"`
	Evidence    datatypes.JSON `json:"evidence" gorm:"column:evidence"`
}

func (PathwayMember) TableName() string { return "pathway_member" }

func (p PathwayMember) Key() string { return joinKey(p.PathwayID, p.GeneID, p.Source) }

// DiseaseGene speichert genetische Evidenz für eine Krankheit-Gen-Assoziation.
type DiseaseGene struct {
	DiseaseID    string         `json:"disease_id" gorm:"column:disease_id;not null"`
	GeneID       string         `json:"gene_id" gorm:"column:gene_id;not null"`
	EvidenceType string         `json:"evidence_type" gorm:"column:evidence_type;not null"`
	Score        *float64       `json:"score" gorm:"column:score"`
	Source       string         `json:"source" gorm:"column:source;not null"`
	Evidence     datatypes.JSON `json:"evidence" gorm:"column:evidence"`
}

func (DiseaseGene) TableName() string { return "disease_gene" }

func (d DiseaseGene) Key() string { return joinKey(d.DiseaseID, d.GeneID, d.EvidenceType, d.Source) }

// TissueExpr hält einen Expressionswert eines Gens in einem Gewebe.
type TissueExpr struct {
	GeneID     string         `json:"gene_id" gorm:"column:gene_id;not null"`
	Tissue     string         `json:"tissue" gorm:"column:tissue;not null"`
	Expression *float64       `json:"expression" gorm:"column:expression"`
	Unit       string         `json:"unit" gorm:"column:unit"`
	Source     string         `json:"source" gorm:"column:source;not null"`
	Evidence   datatypes.JSON `json:"evidence" gorm:"column:evidence"`
}

func (TissueExpr) TableName() string { return "tissue_expr" }

func (t TissueExpr) Key() string { return joinKey(t.GeneID, t.Tissue, t.Source) }

// Drug ist ein harmonisierter Wirkstoff (z.B. RxNorm-Konzept).
type Drug struct {
	DrugID        string `json:"drug_id" gorm:"column:drug_id;not null"`
	PreferredName string `json:"preferred_name" gorm:"column:preferred_name;not null"`
	Synonyms      string `json:"synonyms" gorm:"column:synonyms"`
	Source        string `json:"source" gorm:"column:source;not null"`
}

func (Drug) TableName() string { return "drug" }

func (d Drug) Key() string { return d.DrugID }

// SafetyEvent speichert ein Sicherheitssignal (unerwünschtes Ereignis) eines Wirkstoffs.
type SafetyEvent struct {
	DrugID                     string         `json:"drug_id" gorm:"column:drug_id;not null"`
	AdverseEvent               string         `json:"adverse_event" gorm:"column:adverse_event;not null"`
	ReportCount                *int64         `json:"report_count" gorm:"column:report_count"`
	ProportionalReportingRatio *float64       `json:"proportional_reporting_ratio" gorm:"column:proportional_reporting_ratio"`
	Source                     string         `json:"source" gorm:"column:source;not null"`
	Evidence                   datatypes.JSON `json:"evidence" gorm:"column:evidence"`
}

func (SafetyEvent) TableName() string { return "safety_ae" }

func (s SafetyEvent) Key() string { return joinKey(s.DrugID, s.AdverseEvent, s.Source) }

// Trial ist eine klinische Studie (ClinicalTrials.gov).
type Trial struct {
	NCTID         string  `json:"nct_id" gorm:"column:nct_id;not null"`
	Title         string  `json:"title" gorm:"column:title;not null"`
	Status        string  `json:"status" gorm:"column:status"`
	Phase         string  `json:"phase" gorm:"column:phase"`
	Conditions    string  `json:"conditions" gorm:"column:conditions"`
	Enrollment    *int64  `json:"enrollment" gorm:"column:enrollment"`
	Interventions string  `json:"interventions" gorm:"column:interventions"`
	LastUpdated   *string `json:"last_updated" gorm:"column:last_updated"`
	Source        string  `json:"source" gorm:"column:source;not null"`
}

func (Trial) TableName() string { return "trial" }

func (t Trial) Key() string { return t.NCTID }

func joinKey(parts ...string) string { return strings.Join(parts, "\x00") }
