package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"rx-repurpose/metrics"
	"rx-repurpose/models"
	"rx-repurpose/providers"
)

// ErrMissingColumns meldet einen Extrakt, dem eine Pflichtspalte (inkl. aller Aliase) fehlt.
var ErrMissingColumns = errors.New("missing required columns")

// Sources sind die Extrakte eines Builds. nil bedeutet: Quelle nicht konfiguriert.
type Sources struct {
	OmniPath       providers.Source
	Signor         providers.Source
	String         providers.Source
	DrugCentral    providers.Source
	IUPHAR         providers.Source
	Reactome       providers.Source
	OpenTargets    providers.Source
	GWAS           providers.Source
	DisGeNET       providers.Source
	HPA            providers.Source
	PLAE           providers.Source
	RxNorm         providers.Source
	SIDER          providers.Source
	ClinicalTrials providers.Source
}

// Assembler baut aus den Quellen die kanonischen Tabellen.
type Assembler struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// NewAssembler erstellt einen Assembler; ein nil-Logger wird durch zap.NewNop ersetzt.
func NewAssembler(logger *zap.Logger, m *metrics.Metrics) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{Logger: logger, Metrics: m}
}

type sourceStep struct {
	name     string
	src      providers.Source
	required [][]string
	apply    func(t *models.Tables, records []providers.Record)
}

func (a *Assembler) steps(s Sources) []sourceStep {
	return []sourceStep{
		{SourceOmniPath, s.OmniPath, [][]string{edgeSourceAliases, edgeTargetAliases}, func(t *models.Tables, r []providers.Record) {
			t.ProteinEdges = append(t.ProteinEdges, NormalizeSignedEdges(r, SourceOmniPath)...)
		}},
		{SourceSIGNOR, s.Signor, [][]string{edgeSourceAliases, edgeTargetAliases}, func(t *models.Tables, r []providers.Record) {
			t.ProteinEdges = append(t.ProteinEdges, NormalizeSignedEdges(r, SourceSIGNOR)...)
		}},
		{SourceSTRING, s.String, [][]string{stringProteinAAliases, stringProteinBAliases}, func(t *models.Tables, r []providers.Record) {
			t.ProteinEdges = append(t.ProteinEdges, NormalizeStringEdges(r)...)
		}},
		{SourceReactome, s.Reactome, [][]string{reactomePathwayAliases, reactomeGeneAliases}, func(t *models.Tables, r []providers.Record) {
			t.PathwayMembers = append(t.PathwayMembers, NormalizeReactome(r)...)
		}},
		{SourceOpenTargets, s.OpenTargets, [][]string{otDiseaseAliases, otGeneAliases}, func(t *models.Tables, r []providers.Record) {
			t.DiseaseGenes = append(t.DiseaseGenes, NormalizeOpenTargets(r)...)
		}},
		{SourceGWAS, s.GWAS, [][]string{gwasDiseaseAliases, gwasGeneAliases}, func(t *models.Tables, r []providers.Record) {
			t.DiseaseGenes = append(t.DiseaseGenes, NormalizeGWAS(r)...)
		}},
		{SourceDisGeNET, s.DisGeNET, [][]string{disgenetDiseaseAliases, disgenetGeneAliases}, func(t *models.Tables, r []providers.Record) {
			t.DiseaseGenes = append(t.DiseaseGenes, NormalizeDisGeNET(r)...)
		}},
		{SourceHPA, s.HPA, [][]string{hpaGeneAliases, hpaTissueAliases}, func(t *models.Tables, r []providers.Record) {
			t.TissueExpr = append(t.TissueExpr, NormalizeHPA(r)...)
		}},
		{SourcePLAE, s.PLAE, [][]string{plaeGeneAliases, plaeTissueAliases}, func(t *models.Tables, r []providers.Record) {
			t.TissueExpr = append(t.TissueExpr, NormalizePLAE(r)...)
		}},
		{SourceRxNorm, s.RxNorm, [][]string{rxnormIDAliases, rxnormNameAliases}, func(t *models.Tables, r []providers.Record) {
			t.Drugs = append(t.Drugs, NormalizeRxNorm(r)...)
		}},
		{SourceDrugCentral, s.DrugCentral, [][]string{drugIDAliases, targetIDAliases}, func(t *models.Tables, r []providers.Record) {
			t.DrugTargets = append(t.DrugTargets, NormalizeDrugTargets(r, SourceDrugCentral)...)
		}},
		{SourceIUPHAR, s.IUPHAR, [][]string{drugIDAliases, targetIDAliases}, func(t *models.Tables, r []providers.Record) {
			t.DrugTargets = append(t.DrugTargets, NormalizeDrugTargets(r, SourceIUPHAR)...)
		}},
		{SourceSIDER, s.SIDER, [][]string{siderDrugAliases, siderEventAliases}, func(t *models.Tables, r []providers.Record) {
			t.SafetyEvents = append(t.SafetyEvents, NormalizeSIDER(r)...)
		}},
		{SourceClinicalTrials, s.ClinicalTrials, [][]string{trialIDAliases, trialTitleAliases}, func(t *models.Tables, r []providers.Record) {
			t.Trials = append(t.Trials, NormalizeTrials(r)...)
		}},
	}
}

// Assemble lädt und normalisiert alle konfigurierten Quellen.
// Fehlende oder fehlerhafte Quellen werden protokolliert und übersprungen; nur ein
// abgebrochener Kontext beendet den Build mit Fehler.
func (a *Assembler) Assemble(ctx context.Context, s Sources) (*models.Tables, error) {
	tables := models.NewTables()

	for _, step := range a.steps(s) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := a.Logger.With(zap.String("source", step.name))
		if step.src == nil {
			log.Info("Source not configured, skipping")
			continue
		}

		tbl, err := step.src.Load(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn("Skipping source due to read error", zap.Error(err))
			a.Metrics.SourceFailed(step.name, "read")
			continue
		}
		if tbl.Len() == 0 {
			log.Info("Source is empty")
			continue
		}
		if err := checkColumns(tbl, step.required); err != nil {
			log.Warn("Skipping source", zap.Error(err), zap.Strings("columns", tbl.Columns))
			a.Metrics.SourceFailed(step.name, "columns")
			continue
		}

		before := tableSizes(tables)
		step.apply(tables, tbl.Records)
		a.Metrics.SourceRows(step.name, tbl.Len())
		log.Info("Source normalized", zap.Int("raw_rows", tbl.Len()), zap.Int("rows", tableSizes(tables)-before))
	}

	// Abschließende Deduplizierung über alle Quellen.
	tables.ProteinEdges = dedupByKey(tables.ProteinEdges)
	tables.PathwayMembers = dedupByKey(tables.PathwayMembers)
	tables.DiseaseGenes = dedupByKey(tables.DiseaseGenes)
	tables.TissueExpr = dedupByKey(tables.TissueExpr)
	tables.Drugs = dedupByKey(tables.Drugs)
	tables.DrugTargets = dedupByKey(tables.DrugTargets)
	tables.SafetyEvents = dedupByKey(tables.SafetyEvents)
	tables.Trials = dedupByKey(tables.Trials)
	tables.Genes = deriveGenes(tables)

	for _, tr := range tables.Each() {
		a.Metrics.TableRows(tr.Name, tr.Count)
	}
	a.Logger.Info("Tables assembled",
		zap.Int("protein_edge", len(tables.ProteinEdges)),
		zap.Int("drug_target", len(tables.DrugTargets)),
		zap.Int("disease_gene", len(tables.DiseaseGenes)),
		zap.Int("gene", len(tables.Genes)))
	return tables, nil
}

func checkColumns(tbl *providers.Table, required [][]string) error {
	var missing []string
	for _, group := range required {
		if !tbl.HasAny(group) {
			missing = append(missing, strings.Join(group, "|"))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

func tableSizes(t *models.Tables) int {
	n := 0
	for _, tr := range t.Each() {
		n += tr.Count
	}
	return n
}
