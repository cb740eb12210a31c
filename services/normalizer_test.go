package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rx-repurpose/models"
	"rx-repurpose/providers"
)

func TestFirstPresentSkipsBlankAndNaN(t *testing.T) {
	rec := providers.Record{"a": "  ", "b": math.NaN(), "c": nil, "d": " GENE1 "}
	v, ok := FirstPresent(rec, []string{"missing", "a", "b", "c", "d"})
	require.True(t, ok)
	assert.Equal(t, "GENE1", v)

	_, ok = FirstPresent(rec, []string{"a", "b"})
	assert.False(t, ok)
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{true, 1, int64(2), 1.0, "1", "TRUE", "yes", "y", "direct", "up", "0.5"} {
		assert.True(t, Truthy(v), "%v", v)
	}
	for _, v := range []any{nil, false, 0, 0.0, math.NaN(), "", "0", "no", "false", "down"} {
		assert.False(t, Truthy(v), "%v", v)
	}
}

func TestNormalizeSignedEdgesSignPrecedence(t *testing.T) {
	records := []providers.Record{
		{"source_genesymbol": "A", "target_genesymbol": "B", "is_stimulation": true},
		{"source_genesymbol": "A", "target_genesymbol": "C", "is_inhibition": "1"},
		{"ENTITYA": "D", "ENTITYB": "E", "EFFECT": "up-regulates activity"},
		{"ENTITYA": "D", "ENTITYB": "F", "EFFECT": "down-regulates quantity"},
		{"ENTITYA": "D", "ENTITYB": "G", "EFFECT": "unknown"},
		{"source_genesymbol": "A", "target_genesymbol": "H", "is_stimulation": true, "is_inhibition": true},
		{"target_genesymbol": "B", "is_stimulation": true},
	}
	edges := NormalizeSignedEdges(records, SourceSIGNOR)
	require.Len(t, edges, 5)

	signs := map[string]string{}
	for _, e := range edges {
		require.NotNil(t, e.Sign)
		signs[e.DstGeneID] = *e.Sign
		assert.Equal(t, SourceSIGNOR, e.Source)
	}
	assert.Equal(t, map[string]string{"B": "+", "C": "-", "E": "+", "F": "-", "H": "+"}, signs)
	assert.Equal(t, "up-regulates_activity", edges[2].Relation)
	assert.Equal(t, "interaction", edges[0].Relation)
}

func TestNormalizeSignedEdgesOmniPathIsDirect(t *testing.T) {
	records := []providers.Record{
		{"source_genesymbol": "GENE1", "target_genesymbol": "GENE2", "is_stimulation": true, "references": "PMID:1"},
	}
	edges := NormalizeSignedEdges(records, SourceOmniPath)
	require.Len(t, edges, 1)
	assert.True(t, edges[0].Direct)
	assert.Equal(t, "PMID:1", edges[0].SourceReference)
	assert.JSONEq(t, `{"raw":"PMID:1","pmids":["1"]}`, string(edges[0].Evidence))

	signor := NormalizeSignedEdges([]providers.Record{
		{"ENTITYA": "X", "ENTITYB": "Y", "EFFECT": "activation"},
	}, SourceSIGNOR)
	require.Len(t, signor, 1)
	assert.False(t, signor[0].Direct)
	assert.JSONEq(t, `{}`, string(signor[0].Evidence))
}

func TestNormalizeSignedEdgesDedupKeepsFirst(t *testing.T) {
	records := []providers.Record{
		{"source_genesymbol": "A", "target_genesymbol": "B", "is_stimulation": true, "references": "first"},
		{"source_genesymbol": "A", "target_genesymbol": "B", "is_stimulation": true, "references": "second"},
	}
	edges := NormalizeSignedEdges(records, SourceOmniPath)
	require.Len(t, edges, 1)
	assert.Equal(t, "first", edges[0].SourceReference)
}

func TestNormalizeStringEdges(t *testing.T) {
	records := []providers.Record{
		{"protein1": "9606.GENE1", "protein2": "9606.GENE3", "combined_score": 600.0},
		{"protein1": "9606.GENE1", "protein2": "9606.GENE3", "combined_score": 900.0},
		{"protein1": "GENE4", "protein2": "GENE5"},
	}
	edges := NormalizeStringEdges(records)
	require.Len(t, edges, 2)
	e := edges[0]
	assert.Equal(t, "GENE1", e.SrcGeneID)
	assert.Equal(t, "GENE3", e.DstGeneID)
	assert.Nil(t, e.Sign)
	assert.False(t, e.Direct)
	assert.Equal(t, "physical_interaction", e.Relation)
	assert.Equal(t, SourceSTRING, e.SourceReference)
	assert.JSONEq(t, `{"combined_score":600}`, string(e.Evidence))
	assert.Equal(t, "GENE4", edges[1].SrcGeneID)
}

func TestNormalizeDrugTargets(t *testing.T) {
	dc := NormalizeDrugTargets([]providers.Record{
		{"drug_chembl_id": "CHEMBL1", "gene": "GENE1", "action_type": "inhibitor", "act_value": 20.0, "act_unit": "nM", "reference": "PMID:2"},
		{"drug_chembl_id": "CHEMBL1", "gene": "GENE1", "action_type": "duplicate"},
		{"drug_chembl_id": "CHEMBL2", "gene": "GENE9", "act_value": "n/a"},
		{"gene": "GENE1"},
	}, SourceDrugCentral)
	require.Len(t, dc, 2)
	assert.Equal(t, "inhibitor", dc[0].Action)
	require.NotNil(t, dc[0].Affinity)
	assert.Equal(t, 20.0, *dc[0].Affinity)
	assert.Equal(t, "nM", dc[0].AffinityUnit)
	assert.JSONEq(t, `{"references":"PMID:2","pmids":["2"]}`, string(dc[0].Evidence))
	assert.Nil(t, dc[1].Affinity)

	iuphar := NormalizeDrugTargets([]providers.Record{
		{"ligand_id": "CHEMBL1", "uniprot_id": "GENE2", "mechanism_of_action": "agonist"},
	}, SourceIUPHAR)
	require.Len(t, iuphar, 1)
	assert.Equal(t, "agonist", iuphar[0].Action)
	assert.Equal(t, "agonist", iuphar[0].MoACategory)
	assert.Equal(t, "GENE2", iuphar[0].TargetID)
}

func TestEdgeKeysAreUnique(t *testing.T) {
	edges := NormalizeSignedEdges([]providers.Record{
		{"source_genesymbol": "A", "target_genesymbol": "B", "is_stimulation": true},
		{"source_genesymbol": "A", "target_genesymbol": "B", "is_inhibition": true},
		{"source_genesymbol": "A", "target_genesymbol": "B", "is_stimulation": true, "type": "binding"},
		{"source_genesymbol": "A", "target_genesymbol": "B", "is_stimulation": true},
	}, SourceOmniPath)
	keys := map[string]bool{}
	for _, e := range edges {
		assert.False(t, keys[e.Key()])
		keys[e.Key()] = true
	}
	assert.Len(t, edges, 3)
}

func TestNormalizeTrialsJoinsLists(t *testing.T) {
	trials := NormalizeTrials([]providers.Record{
		{"nct_id": "NCT1", "brief_title": "Café trial", "conditions": []any{"AMD", "Glaucoma"}, "enrollment": 12.0},
		{"nct_id": "NCT1", "brief_title": "duplicate"},
		{"nct_id": "NCT2"},
	})
	require.Len(t, trials, 1)
	assert.Equal(t, "Café trial", trials[0].Title)
	assert.Equal(t, "AMD; Glaucoma", trials[0].Conditions)
	require.NotNil(t, trials[0].Enrollment)
	assert.Equal(t, int64(12), *trials[0].Enrollment)
	assert.Nil(t, trials[0].LastUpdated)
	assert.Equal(t, SourceClinicalTrials, trials[0].Source)
}

func TestNormalizeExpressionUnits(t *testing.T) {
	hpa := NormalizeHPA([]providers.Record{{"Gene": "ENSG1", "Tissue": "Retina", "TPM": "50"}})
	plae := NormalizePLAE([]providers.Record{{"gene_id": "ENSG1", "tissue": "Retina", "log2_tpm": 5.5}})
	require.Len(t, hpa, 1)
	require.Len(t, plae, 1)
	assert.Equal(t, "TPM", hpa[0].Unit)
	assert.Equal(t, "log2(TPM)", plae[0].Unit)
	assert.Equal(t, 5.5, *plae[0].Expression)
}

func TestDeriveGenes(t *testing.T) {
	tables := models.NewTables()
	tables.ProteinEdges = []models.ProteinEdge{{SrcGeneID: "A", DstGeneID: "B"}}
	tables.DrugTargets = []models.DrugTarget{{DrugID: "D", TargetID: "B"}, {DrugID: "D", TargetID: "C"}}
	genes := deriveGenes(tables)
	require.Len(t, genes, 3)
	assert.Equal(t, "A", genes[0].GeneID)
	assert.Equal(t, "C", genes[2].GeneID)
	assert.Equal(t, models.DefaultSpecies, genes[0].Species)
}
