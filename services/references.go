package services

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	doiPattern  = regexp.MustCompile(`10\.\d{4,9}/[^\s;,|]+`)
	pmidPattern = regexp.MustCompile(`^\d{1,9}$`)
)

// LiteratureRefs sind die Literaturbelege eines Referenzfeldes in Reihenfolge ihres Auftretens.
type LiteratureRefs struct {
	PMIDs []string
	DOIs  []string
}

func (r LiteratureRefs) Empty() bool { return len(r.PMIDs) == 0 && len(r.DOIs) == 0 }

func isReferenceSeparator(r rune) bool {
	return r == ';' || r == ',' || r == '|' || unicode.IsSpace(r)
}

// ExtractLiterature zerlegt Felder wie "SIGNOR:12345;HPRD:678", "PMID: 42" oder "doi:10.1000/x".
// Ein Präfix vor dem letzten Doppelpunkt gilt als Ressourcenname; Duplikate werden entfernt.
func ExtractLiterature(raw string) LiteratureRefs {
	var refs LiteratureRefs
	seen := map[string]bool{}
	for _, tok := range strings.FieldsFunc(raw, isReferenceSeparator) {
		if doi := doiPattern.FindString(tok); doi != "" {
			doi = strings.TrimRight(doi, ".")
			key := "doi:" + strings.ToLower(doi)
			if !seen[key] {
				seen[key] = true
				refs.DOIs = append(refs.DOIs, doi)
			}
			continue
		}
		if i := strings.LastIndexByte(tok, ':'); i >= 0 {
			tok = tok[i+1:]
		}
		if pmidPattern.MatchString(tok) && !seen[tok] {
			seen[tok] = true
			refs.PMIDs = append(refs.PMIDs, tok)
		}
	}
	return refs
}

// addLiterature ergänzt die Evidenz um extrahierte PMIDs und DOIs.
func addLiterature(evidence map[string]any, raw string) {
	refs := ExtractLiterature(raw)
	if len(refs.PMIDs) > 0 {
		evidence["pmids"] = refs.PMIDs
	}
	if len(refs.DOIs) > 0 {
		evidence["dois"] = refs.DOIs
	}
}
