package services

import (
	"strings"

	"rx-repurpose/models"
	"rx-repurpose/providers"
)

const (
	SourceReactome       = "Reactome"
	SourceOpenTargets    = "OpenTargets"
	SourceGWAS           = "GWASCatalog"
	SourceDisGeNET       = "DisGeNET"
	SourceHPA            = "HPA"
	SourcePLAE           = "PLAE"
	SourceRxNorm         = "RxNorm"
	SourceSIDER          = "SIDER"
	SourceClinicalTrials = "ClinicalTrials.gov"
)

var (
	reactomePathwayAliases  = []string{"pathway_id", "Pathway identifier", "Pathway stId", "Pathway Identifier", "stId"}
	reactomeGeneAliases     = []string{"gene_id", "Entity identifier", "Entity Identifier", "Ensembl identifier", "Ensembl Identifier", "Entity", "Entity ID"}
	reactomeNameAliases     = []string{"pathway_name", "Pathway name", "Pathway Name", "Pathway"}
	reactomeEvidenceAliases = []string{"Evidence", "evidence"}

	otDiseaseAliases  = []string{"diseaseId", "disease_id"}
	otGeneAliases     = []string{"targetId", "gene_id"}
	otScoreAliases    = []string{"overallScore", "score"}
	otDatatypeAliases = []string{"datatypeId", "data_source"}

	gwasDiseaseAliases = []string{"trait_id", "disease_id", "efo_id"}
	gwasGeneAliases    = []string{"gene_id", "ensembl_id"}
	gwasPValueAliases  = []string{"p_value", "pvalue"}
	gwasOddsAliases    = []string{"odds_ratio", "or"}
	gwasBetaAliases    = []string{"beta"}

	disgenetDiseaseAliases = []string{"diseaseId", "disease_id"}
	disgenetGeneAliases    = []string{"geneId", "gene_id"}
	disgenetScoreAliases   = []string{"score", "DSI", "DPI"}

	hpaGeneAliases        = []string{"Gene", "gene_id", "Ensembl"}
	hpaTissueAliases      = []string{"Tissue", "tissue"}
	hpaLevelAliases       = []string{"TPM", "expression"}
	hpaCellTypeAliases    = []string{"Cell type", "cell_type"}
	hpaReliabilityAliases = []string{"Reliability", "reliability"}

	plaeGeneAliases   = []string{"gene_id", "gene"}
	plaeTissueAliases = []string{"compartment", "tissue", "dataset"}
	plaeLevelAliases  = []string{"log2_tpm", "expression", "avg_log2"}

	rxnormIDAliases      = []string{"RXCUI", "rxcui", "drug_id"}
	rxnormNameAliases    = []string{"STR", "name", "preferred_name"}
	rxnormSynonymAliases = []string{"synonym", "SYNONYMS", "synonyms"}

	siderDrugAliases   = []string{"drug_id", "drug", "stitch_id_flat"}
	siderEventAliases  = []string{"adverse_event", "side_effect_name", "meddra_concept"}
	siderReportAliases = []string{"reports", "frequency"}
	siderPRRAliases    = []string{"prr", "proportional_reporting_ratio"}

	trialIDAliases           = []string{"nct_id", "NCTId"}
	trialTitleAliases        = []string{"brief_title", "BriefTitle", "title"}
	trialStatusAliases       = []string{"overall_status", "OverallStatus"}
	trialPhaseAliases        = []string{"phase", "Phase"}
	trialConditionAliases    = []string{"conditions", "Condition"}
	trialInterventionAliases = []string{"interventions", "InterventionName"}
	trialUpdatedAliases      = []string{"last_update_posted_date", "LastUpdatePostDate"}
	trialEnrollmentAliases   = []string{"enrollment", "EnrollmentCount"}
)

// NormalizeReactome liest Pathway-Mitgliedschaften (Ensembl2Reactome & Co.).
func NormalizeReactome(records []providers.Record) []models.PathwayMember {
	out := make([]models.PathwayMember, 0, len(records))
	for _, rec := range records {
		pathwayID, okP := FirstPresent(rec, reactomePathwayAliases)
		gene, okG := FirstPresent(rec, reactomeGeneAliases)
		if !okP || !okG {
			continue
		}
		name, _ := FirstPresent(rec, reactomeNameAliases)
		evidence := map[string]any{}
		if code, ok := FirstPresent(rec, reactomeEvidenceAliases); ok {
			evidence["evidence_code"] = code
		}
		out = append(out, models.PathwayMember{
			PathwayID:   pathwayID,
			GeneID:      gene,
			PathwayName: cleanText(name),
			Source:      SourceReactome,
			Evidence:    evidenceJSON(evidence),
		})
	}
	return dedupByKey(out)
}

// NormalizeOpenTargets liest Assoziations-Exporte der Open Targets Platform.
func NormalizeOpenTargets(records []providers.Record) []models.DiseaseGene {
	out := make([]models.DiseaseGene, 0, len(records))
	for _, rec := range records {
		disease, okD := FirstPresent(rec, otDiseaseAliases)
		gene, okG := FirstPresent(rec, otGeneAliases)
		if !okD || !okG {
			continue
		}
		datatype, ok := FirstPresent(rec, otDatatypeAliases)
		if !ok {
			datatype = "opentargets"
		}
		evidence := map[string]any{"data_type": datatype}
		if v, ok := FirstPresent(rec, []string{"association_score"}); ok {
			if f := parseFloat(v, true); f != nil {
				evidence["association_score"] = *f
			} else {
				evidence["association_score"] = v
			}
		}
		out = append(out, models.DiseaseGene{
			DiseaseID:    disease,
			GeneID:       gene,
			EvidenceType: datatype,
			Score:        parseFloat(FirstPresent(rec, otScoreAliases)),
			Source:       SourceOpenTargets,
			Evidence:     evidenceJSON(evidence),
		})
	}
	return dedupByKey(out)
}

// NormalizeGWAS liest GWAS-Catalog-Assoziationen; score = Effektstärke (beta).
func NormalizeGWAS(records []providers.Record) []models.DiseaseGene {
	out := make([]models.DiseaseGene, 0, len(records))
	for _, rec := range records {
		disease, okD := FirstPresent(rec, gwasDiseaseAliases)
		gene, okG := FirstPresent(rec, gwasGeneAliases)
		if !okD || !okG {
			continue
		}
		evidence := map[string]any{}
		if p := parseFloat(FirstPresent(rec, gwasPValueAliases)); p != nil {
			evidence["p_value"] = *p
		}
		if or := parseFloat(FirstPresent(rec, gwasOddsAliases)); or != nil {
			evidence["odds_ratio"] = *or
		}
		out = append(out, models.DiseaseGene{
			DiseaseID:    disease,
			GeneID:       gene,
			EvidenceType: "GWAS",
			Score:        parseFloat(FirstPresent(rec, gwasBetaAliases)),
			Source:       SourceGWAS,
			Evidence:     evidenceJSON(evidence),
		})
	}
	return dedupByKey(out)
}

// NormalizeDisGeNET liest Gen-Krankheits-Assoziationen aus DisGeNET.
func NormalizeDisGeNET(records []providers.Record) []models.DiseaseGene {
	out := make([]models.DiseaseGene, 0, len(records))
	for _, rec := range records {
		disease, okD := FirstPresent(rec, disgenetDiseaseAliases)
		gene, okG := FirstPresent(rec, disgenetGeneAliases)
		if !okD || !okG {
			continue
		}
		evidence := map[string]any{}
		if origin, ok := FirstPresent(rec, []string{"source"}); ok {
			evidence["source"] = origin
		}
		out = append(out, models.DiseaseGene{
			DiseaseID:    disease,
			GeneID:       gene,
			EvidenceType: "DisGeNET",
			Score:        parseFloat(FirstPresent(rec, disgenetScoreAliases)),
			Source:       SourceDisGeNET,
			Evidence:     evidenceJSON(evidence),
		})
	}
	return dedupByKey(out)
}

// NormalizeHPA liest Gewebeexpression aus dem Human Protein Atlas.
func NormalizeHPA(records []providers.Record) []models.TissueExpr {
	out := make([]models.TissueExpr, 0, len(records))
	for _, rec := range records {
		gene, okG := FirstPresent(rec, hpaGeneAliases)
		tissue, okT := FirstPresent(rec, hpaTissueAliases)
		if !okG || !okT {
			continue
		}
		unit, ok := FirstPresent(rec, []string{"unit"})
		if !ok {
			unit = "TPM"
		}
		evidence := map[string]any{}
		if ct, ok := FirstPresent(rec, hpaCellTypeAliases); ok {
			evidence["cell_type"] = ct
		}
		if rel, ok := FirstPresent(rec, hpaReliabilityAliases); ok {
			evidence["reliability"] = rel
		}
		out = append(out, models.TissueExpr{
			GeneID:     gene,
			Tissue:     tissue,
			Expression: parseFloat(FirstPresent(rec, hpaLevelAliases)),
			Unit:       unit,
			Source:     SourceHPA,
			Evidence:   evidenceJSON(evidence),
		})
	}
	return dedupByKey(out)
}

// NormalizePLAE liest Einzelzell-Expression (log2 TPM) aus PLAE, typischerweise Parquet.
func NormalizePLAE(records []providers.Record) []models.TissueExpr {
	out := make([]models.TissueExpr, 0, len(records))
	for _, rec := range records {
		gene, okG := FirstPresent(rec, plaeGeneAliases)
		tissue, okT := FirstPresent(rec, plaeTissueAliases)
		if !okG || !okT {
			continue
		}
		evidence := map[string]any{}
		if ds, ok := FirstPresent(rec, []string{"dataset"}); ok {
			evidence["dataset"] = ds
		}
		if ct, ok := FirstPresent(rec, []string{"cell_type"}); ok {
			evidence["cell_type"] = ct
		}
		out = append(out, models.TissueExpr{
			GeneID:     gene,
			Tissue:     tissue,
			Expression: parseFloat(FirstPresent(rec, plaeLevelAliases)),
			Unit:       "log2(TPM)",
			Source:     SourcePLAE,
			Evidence:   evidenceJSON(evidence),
		})
	}
	return dedupByKey(out)
}

// NormalizeRxNorm liest RxNorm-Konzepte; Synonymlisten werden mit ";" verbunden.
func NormalizeRxNorm(records []providers.Record) []models.Drug {
	out := make([]models.Drug, 0, len(records))
	for _, rec := range records {
		id, okID := FirstPresent(rec, rxnormIDAliases)
		name, okName := FirstPresent(rec, rxnormNameAliases)
		if !okID || !okName {
			continue
		}
		out = append(out, models.Drug{
			DrugID:        id,
			PreferredName: cleanText(name),
			Synonyms:      cleanText(listValue(rec, rxnormSynonymAliases, ";")),
			Source:        SourceRxNorm,
		})
	}
	return dedupByKey(out)
}

// NormalizeSIDER liest Nebenwirkungsdaten; Konfidenzgrenzen wandern in die Evidence.
func NormalizeSIDER(records []providers.Record) []models.SafetyEvent {
	out := make([]models.SafetyEvent, 0, len(records))
	for _, rec := range records {
		drug, okD := FirstPresent(rec, siderDrugAliases)
		event, okE := FirstPresent(rec, siderEventAliases)
		if !okD || !okE {
			continue
		}
		evidence := map[string]any{}
		for _, key := range []string{"lower_confidence", "upper_confidence"} {
			if f := parseFloat(FirstPresent(rec, []string{key})); f != nil {
				evidence[key] = *f
			}
		}
		out = append(out, models.SafetyEvent{
			DrugID:                     drug,
			AdverseEvent:               event,
			ReportCount:                parseCount(FirstPresent(rec, siderReportAliases)),
			ProportionalReportingRatio: parseFloat(FirstPresent(rec, siderPRRAliases)),
			Source:                     SourceSIDER,
			Evidence:                   evidenceJSON(evidence),
		})
	}
	return dedupByKey(out)
}

// NormalizeTrials liest ClinicalTrials.gov-v2-Exporte (CSV/TSV/JSON/NDJSON).
func NormalizeTrials(records []providers.Record) []models.Trial {
	out := make([]models.Trial, 0, len(records))
	for _, rec := range records {
		nct, okID := FirstPresent(rec, trialIDAliases)
		title, okTitle := FirstPresent(rec, trialTitleAliases)
		if !okID || !okTitle {
			continue
		}
		status, _ := FirstPresent(rec, trialStatusAliases)
		phase, _ := FirstPresent(rec, trialPhaseAliases)

		var updated *string
		if u, ok := FirstPresent(rec, trialUpdatedAliases); ok {
			updated = &u
		}

		out = append(out, models.Trial{
			NCTID:         nct,
			Title:         cleanText(title),
			Status:        status,
			Phase:         phase,
			Conditions:    cleanText(listValue(rec, trialConditionAliases, "; ")),
			Enrollment:    parseCount(FirstPresent(rec, trialEnrollmentAliases)),
			Interventions: cleanText(listValue(rec, trialInterventionAliases, "; ")),
			LastUpdated:   updated,
			Source:        SourceClinicalTrials,
		})
	}
	return dedupByKey(out)
}

// deriveGenes sammelt alle Genbezeichner der Faktentabellen in Erstauftrittsreihenfolge.
func deriveGenes(t *models.Tables) []models.Gene {
	seen := map[string]bool{}
	genes := []models.Gene{}
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		genes = append(genes, models.Gene{GeneID: id, Symbol: id, Species: models.DefaultSpecies})
	}
	for _, e := range t.ProteinEdges {
		add(e.SrcGeneID)
		add(e.DstGeneID)
	}
	for _, p := range t.PathwayMembers {
		add(p.GeneID)
	}
	for _, d := range t.DiseaseGenes {
		add(d.GeneID)
	}
	for _, x := range t.TissueExpr {
		add(x.GeneID)
	}
	for _, dt := range t.DrugTargets {
		add(dt.TargetID)
	}
	return genes
}
