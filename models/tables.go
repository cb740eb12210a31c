package models

// Tables bündelt alle kanonischen Tabellen eines Builds.
// Fehlende Quellen ergeben leere (nicht-nil) Slices, nie fehlende Tabellen.
type Tables struct {
	Genes          []Gene
	ProteinEdges   []ProteinEdge
	PathwayMembers []PathwayMember
	DiseaseGenes   []DiseaseGene
	TissueExpr     []TissueExpr
	Drugs          []Drug
	DrugTargets    []DrugTarget
	SafetyEvents   []SafetyEvent
	Trials         []Trial
}

// NewTables erzeugt einen leeren Tabellensatz.
func NewTables() *Tables {
	return &Tables{
		Genes:          []Gene{},
		ProteinEdges:   []ProteinEdge{},
		PathwayMembers: []PathwayMember{},
		DiseaseGenes:   []DiseaseGene{},
		TissueExpr:     []TissueExpr{},
		Drugs:          []Drug{},
		DrugTargets:    []DrugTarget{},
		SafetyEvents:   []SafetyEvent{},
		Trials:         []Trial{},
	}
}

// TableRows ist ein Tabellenname mit seinen Zeilen (ein Slice von Modellen).
type TableRows struct {
	Name  string
	Rows  any
	Count int
}

// Each listet alle Tabellen in fester Schreibreihenfolge.
func (t *Tables) Each() []TableRows {
	return []TableRows{
		{Name: Gene{}.TableName(), Rows: t.Genes, Count: len(t.Genes)},
		{Name: ProteinEdge{}.TableName(), Rows: t.ProteinEdges, Count: len(t.ProteinEdges)},
		{Name: PathwayMember{}.TableName(), Rows: t.PathwayMembers, Count: len(t.PathwayMembers)},
		{Name: DiseaseGene{}.TableName(), Rows: t.DiseaseGenes, Count: len(t.DiseaseGenes)},
		{Name: TissueExpr{}.TableName(), Rows: t.TissueExpr, Count: len(t.TissueExpr)},
		{Name: Drug{}.TableName(), Rows: t.Drugs, Count: len(t.Drugs)},
		{Name: DrugTarget{}.TableName(), Rows: t.DrugTargets, Count: len(t.DrugTargets)},
		{Name: SafetyEvent{}.TableName(), Rows: t.SafetyEvents, Count: len(t.SafetyEvents)},
		{Name: Trial{}.TableName(), Rows: t.Trials, Count: len(t.Trials)},
	}
}
