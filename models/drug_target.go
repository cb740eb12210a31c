package models

import "gorm.io/datatypes"

// DrugTarget speichert eine Wirkstoff-Target-Bindung einer Quelle.
type DrugTarget struct {
	DrugID     string `json:"drug_id" gorm:"column:drug_id;not null"`
	TargetID   string `json:"target_id" gorm:"column:target_id;not null"`
	TargetType string `json:"target_type" gorm:"column:target_type"`
	Action     string `json:"action" gorm:"column:action"`
	// nil, wenn der Quellwert nicht numerisch war
	Affinity     *float64       `json:"affinity" gorm:"column:affinity"`
	AffinityUnit string         `json:"affinity_unit" gorm:"column:affinity_unit"`
	MoACategory  string         `json:"moa_category" gorm:"column:moa_category"`
	Source       string         `json:"source" gorm:"column:source;not null"`
	Evidence     datatypes.JSON `json:"evidence" gorm:"column:evidence"`
}

func (DrugTarget) TableName() string { return "drug_target" }

func (d DrugTarget) Key() string { return joinKey(d.DrugID, d.TargetID, d.Source) }
