package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/transit-ingest/internal/config"
)

const routeBody = `{"ida":{"id":205,"horarios":[{"tipoDia":"LABORAL","inicio":"06:00","fin":"22:00"}],` +
	`"paraderos":[{"id":10,"cod":"PA1","pos":[-33.4,-70.6],"servicios":[{"id":1,"cod":"205"},{"id":2,"cod":"210"}]}]}}`

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Fetch: config.FetchConfig{
			RouteIDs:       []string{"205", "210"},
			MaxAttempts:    2,
			TimeoutSeconds: 5,
			ScratchDir:     t.TempDir(),
		},
		PubSub:    config.PubSubConfig{Provider: config.BackendMemory},
		Storage:   config.StorageConfig{Provider: config.BackendMemory, Prefix: "raw"},
		Warehouse: config.WarehouseConfig{Provider: config.BackendMemory},
		Flatten:   config.FlattenConfig{BatchSize: 10},
		Logging:   config.LoggingConfig{Level: "debug"},
	}
}

func TestNewBuildsLogger(t *testing.T) {
	t.Parallel()

	a, err := New(memoryConfig(t))
	require.NoError(t, err)
	assert.NotNil(t, a.Logger())
	assert.Equal(t, config.BackendMemory, a.Config().PubSub.Provider)
	a.Close()

	cfg := memoryConfig(t)
	cfg.Logging.Level = "loud"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestRunFetchWithMemoryBackends(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("codsint") == "210" {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(routeBody))
	}))
	defer srv.Close()

	cfg := memoryConfig(t)
	cfg.Fetch.BaseURL = srv.URL + "/conocerecorrido"
	a := NewWithLogger(cfg, zap.NewNop())
	defer a.Close()

	results, err := a.RunFetch(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)

	msgs := a.memPublisher.Messages()
	require.Len(t, msgs, 1)
	assert.JSONEq(t, routeBody, string(msgs[0]))
	assert.Equal(t, []string{"raw/message_205.json"}, a.memBlobs.Paths())
	assert.Equal(t, "application/json", a.memBlobs.ContentType("raw/message_205.json"))

	entries, err := os.ReadDir(cfg.Fetch.ScratchDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestArchivedSnapshotFlattens(t *testing.T) {
	t.Parallel()

	var pretty bytes.Buffer
	require.NoError(t, json.Indent(&pretty, []byte(routeBody), "", "  "))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(pretty.Bytes())
	}))
	t.Cleanup(srv.Close)

	tests := []struct {
		name    string
		storage func(t *testing.T) config.StorageConfig
	}{
		{name: "local", storage: func(t *testing.T) config.StorageConfig {
			return config.StorageConfig{Provider: config.BackendLocal, LocalDir: t.TempDir()}
		}},
		{name: "memory", storage: func(*testing.T) config.StorageConfig {
			return config.StorageConfig{Provider: config.BackendMemory, Prefix: "raw"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := memoryConfig(t)
			cfg.Fetch.BaseURL = srv.URL + "/conocerecorrido"
			cfg.Fetch.RouteIDs = []string{"205"}
			cfg.Storage = tt.storage(t)
			a := NewWithLogger(cfg, zap.NewNop())
			defer a.Close()

			results, err := a.RunFetch(context.Background())
			require.NoError(t, err)
			require.Len(t, results, 1)
			require.NoError(t, results[0].Err)
			assert.NotContains(t, string(a.memPublisher.Messages()[0]), "\n")

			stats, err := a.RunFlatten(context.Background(), FlattenOptions{InputPath: results[0].ObjectURI})
			require.NoError(t, err)
			assert.Equal(t, 1, stats.Lines)
			assert.Zero(t, stats.ParseErrors)
			assert.Equal(t, 2, stats.Rows)
			require.Len(t, a.memSink.Rows(), 2)
			assert.Equal(t, int64(205), *a.memSink.Rows()[0].ID)
		})
	}
}

func TestOpenObjectRejectsUnknownScheme(t *testing.T) {
	t.Parallel()

	a := NewWithLogger(memoryConfig(t), zap.NewNop())
	defer a.Close()

	_, err := a.openObject(context.Background(), "s3://bucket/routes.ndjson")
	assert.ErrorContains(t, err, "unsupported input uri")
	_, err = a.openObject(context.Background(), "memory://raw/message_205.json")
	assert.ErrorContains(t, err, "no in-memory archive")
}

func TestRunFlattenFromFile(t *testing.T) {
	t.Parallel()

	input := filepath.Join(t.TempDir(), "routes.ndjson")
	require.NoError(t, os.WriteFile(input, []byte(routeBody+"\n\nnot json\n"+routeBody+"\n"), 0o600))

	a := NewWithLogger(memoryConfig(t), zap.NewNop())
	defer a.Close()

	stats, err := a.RunFlatten(context.Background(), FlattenOptions{InputPath: input, OutputTable: "ds.flat"})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Lines)
	assert.Equal(t, 1, stats.ParseErrors)
	assert.Equal(t, 4, stats.Rows)

	rows := a.memSink.Rows()
	require.Len(t, rows, 4)
	assert.Equal(t, "205", *rows[0].ServicioCod)
	assert.Equal(t, "210", *rows[1].ServicioCod)
	assert.Equal(t, rows[0].Timestamp, rows[1].Timestamp)
}

func TestRunFlattenUsesConfiguredInput(t *testing.T) {
	t.Parallel()

	input := filepath.Join(t.TempDir(), "routes.ndjson")
	require.NoError(t, os.WriteFile(input, []byte(routeBody), 0o600))

	cfg := memoryConfig(t)
	cfg.Flatten.InputPath = input
	a := NewWithLogger(cfg, zap.NewNop())
	defer a.Close()

	stats, err := a.RunFlatten(context.Background(), FlattenOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rows)
}

func TestSourceValidation(t *testing.T) {
	t.Parallel()

	a := NewWithLogger(memoryConfig(t), zap.NewNop())
	defer a.Close()

	_, err := a.Source(context.Background(), FlattenOptions{})
	assert.ErrorContains(t, err, "required")

	_, err = a.Source(context.Background(), FlattenOptions{InputPath: "x", InputSubscription: "y"})
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = a.Source(context.Background(), FlattenOptions{InputSubscription: "y"})
	assert.ErrorContains(t, err, "pubsub.project_id")
}

func TestUnknownProviders(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	cfg.Warehouse.Provider = "sqlite"
	cfg.PubSub.Provider = "kafka"
	cfg.Storage.Provider = "s3"
	a := NewWithLogger(cfg, zap.NewNop())
	defer a.Close()

	_, err := a.Sink(context.Background(), "t")
	assert.ErrorContains(t, err, "unknown warehouse provider")
	_, err = a.publisher(context.Background())
	assert.ErrorContains(t, err, "unknown pubsub provider")
	_, err = a.blobStore(context.Background())
	assert.ErrorContains(t, err, "unknown storage provider")
}

func TestLocalBlobStore(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	cfg.Storage = config.StorageConfig{Provider: config.BackendLocal, LocalDir: filepath.Join(t.TempDir(), "archive")}
	a := NewWithLogger(cfg, zap.NewNop())
	defer a.Close()

	store, err := a.blobStore(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestBigQuerySinkNeedsProject(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	cfg.Warehouse = config.WarehouseConfig{Provider: config.BackendBigQuery}
	a := NewWithLogger(cfg, zap.NewNop())
	defer a.Close()

	_, err := a.Sink(context.Background(), "dataset.table")
	assert.ErrorContains(t, err, "no project")
}

func TestPubSubPublisherChecksTopic(t *testing.T) {
	srv := pstest.NewServer()
	defer srv.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", srv.Addr)

	cfg := memoryConfig(t)
	cfg.PubSub = config.PubSubConfig{Provider: config.BackendPubSub, ProjectID: "transit", TopicID: "routes"}
	a := NewWithLogger(cfg, zap.NewNop())
	defer a.Close()

	ctx := context.Background()
	_, err := a.publisher(ctx)
	assert.ErrorContains(t, err, "does not exist")

	client, err := a.pubsub(ctx)
	require.NoError(t, err)
	_, err = client.CreateTopic(ctx, "routes")
	require.NoError(t, err)

	pub, err := a.publisher(ctx)
	require.NoError(t, err)
	id, err := pub.Publish(ctx, []byte(routeBody))
	require.NoError(t, err)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, routeBody, string(msgs[0].Data))
}
