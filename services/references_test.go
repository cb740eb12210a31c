package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLiterature(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		pmids []string
		dois  []string
	}{
		{"omnipath resources", "SIGNOR:12345;HPRD:678;SIGNOR:12345", []string{"12345", "678"}, nil},
		{"pmid with space", "PMID: 42", []string{"42"}, nil},
		{"bare ids", "111,222 | 333", []string{"111", "222", "333"}, nil},
		{"doi", "doi:10.1038/nature12373. DOI:10.1038/NATURE12373", nil, []string{"10.1038/nature12373"}},
		{"mixed", "PMID:7;doi:10.1000/xyz123", []string{"7"}, []string{"10.1000/xyz123"}},
		{"no literature", "curated; see text", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := ExtractLiterature(tt.raw)
			assert.Equal(t, tt.pmids, refs.PMIDs)
			assert.Equal(t, tt.dois, refs.DOIs)
			assert.Equal(t, tt.pmids == nil && tt.dois == nil, refs.Empty())
		})
	}
}
