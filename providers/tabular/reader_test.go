package tabular

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDelimiterFromExtension(t *testing.T) {
	assert.Equal(t, '\t', Delimiter("reactome.tsv"))
	assert.Equal(t, '\t', Delimiter("UniProt2Reactome.TXT"))
	assert.Equal(t, ',', Delimiter("trials.csv"))
	assert.Equal(t, ',', Delimiter("export"))
	assert.True(t, IsParquet("plae.parquet"))
	assert.True(t, IsParquet("plae.PQ"))
	assert.False(t, IsParquet("plae.csv"))
}

func TestReadTSVTurnsEmptyCellsIntoNil(t *testing.T) {
	path := writeFile(t, "hpa.tsv", "Gene\tTissue\tTPM\nENSG1\tRetina\t50.0\nENSG2\t\t\n")

	table, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gene", "Tissue", "TPM"}, table.Columns)
	require.Len(t, table.Records, 2)
	assert.Equal(t, "ENSG1", table.Records[0]["Gene"])
	assert.Equal(t, "50.0", table.Records[0]["TPM"])
	assert.Nil(t, table.Records[1]["Tissue"])
	assert.Nil(t, table.Records[1]["TPM"])
}

func TestReadCSVWithQuotesAndShortRows(t *testing.T) {
	path := writeFile(t, "trials.csv", "\ufeffnct_id,brief_title,phase\nNCT1,\"A, quoted title\"\nNCT2,Other,Phase 2\n")

	table, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "nct_id", table.Columns[0])
	require.Len(t, table.Records, 2)
	assert.Equal(t, "A, quoted title", table.Records[0]["brief_title"])
	assert.Nil(t, table.Records[0]["phase"])
	assert.Equal(t, "Phase 2", table.Records[1]["phase"])
}

func TestReadEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", "")

	table, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestReadJSONAndNDJSON(t *testing.T) {
	jsonPath := writeFile(t, "trials.json", `[{"NCTId":"NCT1","BriefTitle":"T","Condition":["AMD","DME"]}]`)
	table, err := Read(jsonPath)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, []any{"AMD", "DME"}, table.Records[0]["Condition"])
	assert.Contains(t, table.Columns, "NCTId")

	ndPath := writeFile(t, "trials.ndjson", "{\"nct_id\":\"NCT1\"}\n\n{\"nct_id\":\"NCT2\",\"enrollment\":40}\n")
	table, err = Read(ndPath)
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.Equal(t, float64(40), table.Records[1]["enrollment"])
}

type plaeRow struct {
	GeneID  string  `parquet:"gene_id"`
	Tissue  string  `parquet:"tissue"`
	Log2TPM float64 `parquet:"log2_tpm"`
}

func TestReadParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plae.parquet")
	rows := []plaeRow{
		{GeneID: "ENSG1", Tissue: "Retina", Log2TPM: 5.5},
		{GeneID: "ENSG2", Tissue: "RPE", Log2TPM: 1.25},
	}
	require.NoError(t, parquet.WriteFile(path, rows))

	table, err := Read(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"gene_id", "tissue", "log2_tpm"}, table.Columns)
	require.Len(t, table.Records, 2)
	assert.Equal(t, "ENSG1", table.Records[0]["gene_id"])
	assert.Equal(t, "RPE", table.Records[1]["tissue"])
	assert.Equal(t, 1.25, table.Records[1]["log2_tpm"])
}

func TestNewSourceWithoutPathIsNil(t *testing.T) {
	assert.Nil(t, NewSource("Reactome", "  "))

	path := writeFile(t, "r.csv", "pathway_id,gene_id\nR1,G1\n")
	src := NewSource("Reactome", path)
	require.NotNil(t, src)
	assert.Equal(t, "Reactome", src.Name())
	table, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}
