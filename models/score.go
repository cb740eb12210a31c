package models

// SeedSet ist die Evidenzgewichtung einer Krankheit: Gen -> nicht-negatives Gewicht.
// Genes hält die Gene in Reihenfolge ihres ersten Auftretens.
type SeedSet struct {
	DiseaseID string
	Genes     []string
	Weights   map[string]float64
}

// TargetScore ist eine Zeile der Score-Ausgabe.
type TargetScore struct {
	DiseaseID string  `json:"disease_id"`
	TargetID  string  `json:"target_id"`
	Score     float64 `json:"score"`
}

// ModuleScore fasst die Kompaktheit eines Krankheitsmoduls zusammen.
type ModuleScore struct {
	DiseaseID string  `json:"disease_id"`
	Nodes     int     `json:"nodes"`
	MeanPath  float64 `json:"mean_path"`
	ZScore    float64 `json:"zscore"`
}
