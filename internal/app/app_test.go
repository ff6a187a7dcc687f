package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/qaindex/internal/config"
	"github.com/kailas-cloud/qaindex/internal/db"
	"github.com/kailas-cloud/qaindex/internal/domain"
)

func testConfig() config.Config {
	cfg := config.Config{
		Database: config.DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Collection: config.CollectionConfig{
			Description: "PCAF Motor Vehicle Q&A Dataset for RAG",
			Version:     "1.0",
			AssetClass:  "motor_vehicle",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestIndexConfig(t *testing.T) {
	idx, err := indexConfig(config.IndexConfig{Algorithm: "hnsw", HNSWM: 32, HNSWEFConstruct: 400})
	require.NoError(t, err)
	assert.Equal(t, db.VectorHNSW, idx.Algorithm)
	assert.Equal(t, 32, idx.M)
	assert.Equal(t, 400, idx.EFConstruct)

	idx, err = indexConfig(config.IndexConfig{Algorithm: "flat"})
	require.NoError(t, err)
	assert.Equal(t, db.VectorFlat, idx.Algorithm)

	_, err = indexConfig(config.IndexConfig{Algorithm: "ivf"})
	assert.Error(t, err)
}

func TestCollectionFromConfig(t *testing.T) {
	col, err := collectionFromConfig(testConfig())
	require.NoError(t, err)
	assert.Equal(t, "pcaf_motor_vehicle_qa", col.Name())
	assert.Equal(t, 1536, col.VectorDim())
	assert.Equal(t, "PCAF Motor Vehicle Q&A Dataset for RAG", col.Description())
	assert.Equal(t, "1.0", col.Version())
	assert.Equal(t, "motor_vehicle", col.AssetClass())
}

func TestCollectionFromConfig_InvalidName(t *testing.T) {
	cfg := testConfig()
	cfg.Collection.Name = "bad name!"
	_, err := collectionFromConfig(cfg)
	assert.Error(t, err)
}

func TestNew_UnknownDriverIsUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Driver = "mongo"
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindUnavailable, domain.KindOf(err))
}

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) Ping(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestWaitForPing_Retries(t *testing.T) {
	p := &flakyPinger{failures: 2}
	require.NoError(t, waitForPing(context.Background(), p, 5*time.Second))
	assert.Equal(t, 3, p.calls)
}

func TestWaitForPing_Timeout(t *testing.T) {
	p := &flakyPinger{failures: 1 << 30}
	err := waitForPing(context.Background(), p, 300*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWithInstruction(t *testing.T) {
	var e domain.Embedder = &domain.InstructionEmbedder{}
	assert.Same(t, e, withInstruction(e, ""))
	assert.IsType(t, &domain.InstructionEmbedder{}, withInstruction(e, "passage: "))
}
