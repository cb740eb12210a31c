package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rx-repurpose/config"
	"rx-repurpose/metrics"
	"rx-repurpose/providers"
)

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryStore) ListObjectsV2(context.Context, *s3.ListObjectsV2Input, ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{}, nil
}

func (m *memoryStore) DeleteObject(context.Context, *s3.DeleteObjectInput, ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, nil
}

func buildSources() Sources {
	return Sources{
		OmniPath: static(SourceOmniPath, providers.Record{
			"source_genesymbol": "G1", "target_genesymbol": "G2", "is_stimulation": true,
		}),
		DrugCentral: static(SourceDrugCentral, providers.Record{
			"drug_id": "DB1", "gene": "G2", "action_type": "inhibitor",
		}),
	}
}

func TestSourcesFromConfig(t *testing.T) {
	src := SourcesFromConfig(&config.Config{OmniPathPath: "omnipath.tsv", SIDERPath: " "})
	require.NotNil(t, src.OmniPath)
	assert.Equal(t, SourceOmniPath, src.OmniPath.Name())
	assert.Nil(t, src.SIDER)
	assert.Nil(t, src.String)
}

func TestBuildServiceRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.S3URL = "http://minio:9000"
	cfg.S3Bucket = "kg"
	cfg.S3Prefix = "rx-repurpose"
	cfg.KeepBackups = 2
	cfg.MetricsTextfile = filepath.Join(t.TempDir(), "kg.prom")

	store := &memoryStore{}
	svc := NewBuildService(cfg, zaptest.NewLogger(t), metrics.New())
	svc.Sources = buildSources()
	svc.Store = store

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Tables.ProteinEdges, 1)
	assert.Len(t, res.Tables.DrugTargets, 1)
	assert.True(t, strings.HasPrefix(res.Snapshot, "http://minio:9000/kg/rx-repurpose/knowledge_graph-"))

	require.Len(t, store.objects, 1)
	for key, body := range store.objects {
		assert.True(t, strings.HasSuffix(key, ".sqlite.gz"))
		// gzip magic
		assert.Equal(t, []byte{0x1f, 0x8b}, body[:2])
	}

	prom, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `kg_build_runs_total{result="ok"} 1`)
}

func TestBuildServiceScore(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	cfg.S3URL = "http://minio:9000"
	cfg.S3Bucket = "kg"
	cfg.S3Prefix = "rx-repurpose"
	cfg.SeedsPath = filepath.Join(dir, "missing.csv")
	cfg.ScoresOutput = filepath.Join(dir, "scores.csv")

	store := &memoryStore{}
	svc := NewBuildService(cfg, zaptest.NewLogger(t), nil)
	svc.Sources = buildSources()
	svc.Store = store
	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	n, link, err := svc.Score(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, link)

	cfg.SeedsPath = writeFile(t, dir, "seeds.csv", "disease_id,gene_symbol,score\nD1,G1,1\n")
	n, link, err = svc.Score(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, strings.HasPrefix(link, "http://minio:9000/kg/rx-repurpose/target_scores-"))
	assert.True(t, strings.HasSuffix(link, ".csv.gz"))
	assert.FileExists(t, cfg.ScoresOutput)
	assert.Len(t, store.objects, 2)
}

func TestBuildServiceCancelled(t *testing.T) {
	cfg := testConfig(t)
	svc := NewBuildService(cfg, zaptest.NewLogger(t), nil)
	svc.Sources = buildSources()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(cfg.SQLitePath)
	assert.True(t, os.IsNotExist(statErr))
}
