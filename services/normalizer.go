package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/datatypes"

	"rx-repurpose/models"
	"rx-repurpose/providers"
)

// Quellnamen, wie sie in der Spalte "source" landen.
const (
	SourceOmniPath    = "OmniPath"
	SourceSIGNOR      = "SIGNOR"
	SourceSTRING      = "STRING"
	SourceDrugCentral = "DrugCentral"
	SourceIUPHAR      = "IUPHAR"
)

// Alias-Listen pro kanonischem Attribut, in Prüfreihenfolge.
var (
	edgeSourceAliases   = []string{"source_genesymbol", "source", "ENTITYA", "ENTITY_A", "ENTITYA_NAME"}
	edgeTargetAliases   = []string{"target_genesymbol", "target", "ENTITYB", "ENTITY_B", "ENTITYB_NAME"}
	edgeRelationAliases = []string{"consensus_direction", "interaction_type", "type", "mechanism", "MECHANISM", "EFFECT"}
	edgeEffectAliases   = []string{"EFFECT"}
	edgeEvidenceAliases = []string{"references", "curation_effort", "pmid", "REFERENCE", "PMID"}

	stimulationFlags = []string{"is_stimulation", "consensus_stimulation", "stimulation", "UP_REGULATION", "up-regulates"}
	inhibitionFlags  = []string{"is_inhibition", "consensus_inhibition", "inhibition", "DOWN_REGULATION", "down-regulates"}
	directFlags      = []string{"is_direct", "direct", "DIRECT", "is_directed"}

	stringProteinAAliases = []string{"protein1"}
	stringProteinBAliases = []string{"protein2"}
	stringScoreAliases    = []string{"combined_score"}

	drugIDAliases       = []string{"drug_chembl_id", "molecule_chembl_id", "drugcentral_id", "drugbank_id", "ligand_id", "drug_id", "DRUG_ID"}
	targetIDAliases     = []string{"gene", "target_gene_symbol", "accession", "uniprot_id", "swissprot", "target_id", "target"}
	actionAliases       = []string{"action_type", "action", "act_comment", "activity_comment", "mechanism_of_action", "mode_of_action"}
	affinityAliases     = []string{"act_value", "standard_value", "affinity", "pchembl_value", "activity_value"}
	affinityUnitAliases = []string{"act_unit", "standard_units", "affinity_unit"}
	targetTypeAliases   = []string{"target_class", "target_type", "target_pref_name", "target_organism"}
	moaAliases          = []string{"moa", "mechanism_comment", "mechanism_of_action"}
	referenceAliases    = []string{"reference", "pmid", "pubmed_id", "source_reference"}
	bindingRelation     = []string{"relation"}
)

// FirstValue gibt den ersten vorhandenen, nicht-leeren Rohwert der Kandidaten zurück.
func FirstValue(rec providers.Record, candidates []string) (any, bool) {
	for _, key := range candidates {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		if strings.TrimSpace(stringify(v)) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// FirstPresent gibt den ersten vorhandenen, nicht-leeren Wert als getrimmten Text zurück.
func FirstPresent(rec providers.Record, candidates []string) (string, bool) {
	v, ok := FirstValue(rec, candidates)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(stringify(v)), true
}

// Truthy interpretiert heterogene Flag-Werte ("1", "true", "yes", 1.0, true, ...).
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return !math.IsNaN(t) && t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		text := strings.ToLower(strings.TrimSpace(t))
		switch text {
		case "1", "true", "t", "yes", "y", "direct", "up":
			return true
		case "":
			return false
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return !math.IsNaN(f) && f != 0
		}
		return false
	}
	return false
}

func anyTruthy(rec providers.Record, keys []string) bool {
	for _, k := range keys {
		if Truthy(rec[k]) {
			return true
		}
	}
	return false
}

// stringify wandelt Rohwerte in Text; NaN gilt als leer.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return stringify(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			if s := strings.TrimSpace(stringify(it)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ";")
	}
	return fmt.Sprint(v)
}

// parseFloat koerziert Text zu einer endlichen Zahl; nil bei Fehlschlag.
func parseFloat(text string, ok bool) *float64 {
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// parseCount akzeptiert nur reine Ziffernfolgen (auch "12.0" aus Float-Spalten).
func parseCount(text string, ok bool) *int64 {
	if !ok {
		return nil
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), ".0")
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// joinList verbindet Listenwerte (z.B. aus JSON) mit sep, Skalare bleiben unverändert.
func joinList(v any, ok bool, sep string) string {
	if !ok {
		return ""
	}
	if list, isList := v.([]any); isList {
		parts := make([]string, 0, len(list))
		for _, it := range list {
			if s := strings.TrimSpace(stringify(it)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, sep)
	}
	return strings.TrimSpace(stringify(v))
}

func listValue(rec providers.Record, candidates []string, sep string) string {
	v, ok := FirstValue(rec, candidates)
	return joinList(v, ok, sep)
}

// cleanText führt NFC-Normalisierung für Freitextfelder durch (nie für Schlüssel).
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	normalized, _, err := transform.String(norm.NFC, s)
	if err != nil {
		return s
	}
	return normalized
}

// evidenceJSON serialisiert Annotationen deterministisch (json sortiert Map-Keys).
func evidenceJSON(fields map[string]any) datatypes.JSON {
	if len(fields) == 0 {
		return datatypes.JSON("{}")
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

// NormalizeSignedEdges übersetzt kausale Interaktionen (OmniPath, SIGNOR, ...) in ProteinEdges.
// Datensätze ohne auflösbares Vorzeichen oder ohne Endpunkte werden verworfen.
func NormalizeSignedEdges(records []providers.Record, sourceName string) []models.ProteinEdge {
	edges := make([]models.ProteinEdge, 0, len(records))
	for _, rec := range records {
		src, okSrc := FirstPresent(rec, edgeSourceAliases)
		dst, okDst := FirstPresent(rec, edgeTargetAliases)
		if !okSrc || !okDst {
			continue
		}

		relation, ok := FirstPresent(rec, edgeRelationAliases)
		if !ok {
			relation = "interaction"
		}
		relation = strings.ReplaceAll(relation, " ", "_")

		sign, ok := resolveSign(rec)
		if !ok {
			continue
		}

		direct := anyTruthy(rec, directFlags) || sourceName == SourceOmniPath

		evidence := map[string]any{}
		reference, hasRef := FirstPresent(rec, edgeEvidenceAliases)
		if hasRef {
			evidence["raw"] = reference
			addLiterature(evidence, reference)
		}

		edges = append(edges, models.ProteinEdge{
			SrcGeneID:       src,
			DstGeneID:       dst,
			Relation:        relation,
			Sign:            models.Sign(sign),
			Direct:          direct,
			Evidence:        evidenceJSON(evidence),
			Source:          sourceName,
			SourceReference: reference,
		})
	}
	return dedupByKey(edges)
}

// resolveSign: explizite Flags vor Freitext-Effekt; ok=false, wenn nichts greift.
func resolveSign(rec providers.Record) (string, bool) {
	if anyTruthy(rec, stimulationFlags) {
		return models.SignPositive, true
	}
	if anyTruthy(rec, inhibitionFlags) {
		return models.SignNegative, true
	}
	effect, _ := FirstPresent(rec, edgeEffectAliases)
	effect = strings.ToLower(effect)
	switch {
	case strings.Contains(effect, "activ"):
		return models.SignPositive, true
	case strings.Contains(effect, "inhib"), strings.Contains(effect, "down"):
		return models.SignNegative, true
	}
	return "", false
}

// NormalizeStringEdges erzeugt unsignierte physische Interaktionen aus STRING-Links.
// Taxon-Präfixe ("9606.ENSP...") werden entfernt.
func NormalizeStringEdges(records []providers.Record) []models.ProteinEdge {
	edges := make([]models.ProteinEdge, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		src, okSrc := FirstPresent(rec, stringProteinAAliases)
		dst, okDst := FirstPresent(rec, stringProteinBAliases)
		if !okSrc || !okDst {
			continue
		}
		src, dst = stripTaxon(src), stripTaxon(dst)
		if src == "" || dst == "" {
			continue
		}

		key := src + "\x00" + dst
		if seen[key] {
			continue
		}
		seen[key] = true

		evidence := map[string]any{}
		if score := parseFloat(FirstPresent(rec, stringScoreAliases)); score != nil {
			evidence["combined_score"] = *score
		}

		edges = append(edges, models.ProteinEdge{
			SrcGeneID:       src,
			DstGeneID:       dst,
			Relation:        "physical_interaction",
			Direct:          false,
			Evidence:        evidenceJSON(evidence),
			Source:          SourceSTRING,
			SourceReference: SourceSTRING,
		})
	}
	return edges
}

func stripTaxon(id string) string {
	if i := strings.LastIndex(id, "."); i >= 0 {
		return id[i+1:]
	}
	return id
}

// NormalizeDrugTargets übersetzt Bindungsdaten (DrugCentral, IUPHAR, ChEMBL, ...) in DrugTargets.
// Nicht-numerische Affinitäten werden zu nil, die Zeile bleibt erhalten.
func NormalizeDrugTargets(records []providers.Record, sourceName string) []models.DrugTarget {
	targets := make([]models.DrugTarget, 0, len(records))
	for _, rec := range records {
		drugID, okDrug := FirstPresent(rec, drugIDAliases)
		targetID, okTarget := FirstPresent(rec, targetIDAliases)
		if !okDrug || !okTarget {
			continue
		}

		action, _ := FirstPresent(rec, actionAliases)
		unit, _ := FirstPresent(rec, affinityUnitAliases)
		targetType, _ := FirstPresent(rec, targetTypeAliases)
		moa, _ := FirstPresent(rec, moaAliases)

		evidence := map[string]any{}
		if ref, ok := FirstPresent(rec, referenceAliases); ok {
			evidence["references"] = ref
			addLiterature(evidence, ref)
		}
		if rel, ok := FirstPresent(rec, bindingRelation); ok {
			evidence["relation"] = rel
		}

		targets = append(targets, models.DrugTarget{
			DrugID:       drugID,
			TargetID:     targetID,
			TargetType:   cleanText(targetType),
			Action:       cleanText(action),
			Affinity:     parseFloat(FirstPresent(rec, affinityAliases)),
			AffinityUnit: unit,
			MoACategory:  cleanText(moa),
			Source:       sourceName,
			Evidence:     evidenceJSON(evidence),
		})
	}
	return dedupByKey(targets)
}

type keyed interface {
	Key() string
}

// dedupByKey behält pro Schlüssel das erste Vorkommen in Eingabereihenfolge.
func dedupByKey[T keyed](rows []T) []T {
	seen := make(map[string]bool, len(rows))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		k := r.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
