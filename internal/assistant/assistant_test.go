package assistant

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/lisa-bot/internal/executor"
	"github.com/xaenox/lisa-bot/internal/feedback"
	"github.com/xaenox/lisa-bot/internal/keywords"
	"github.com/xaenox/lisa-bot/internal/metrics"
	"github.com/xaenox/lisa-bot/internal/models"
	"github.com/xaenox/lisa-bot/internal/policy"
	"github.com/xaenox/lisa-bot/internal/ranker"
	"github.com/xaenox/lisa-bot/internal/session"
	"github.com/xaenox/lisa-bot/internal/storage"
	"github.com/xaenox/lisa-bot/internal/uploads"
)

type staticGenerator string

func (s staticGenerator) Generate(context.Context, string, string) string { return string(s) }

type staticExecutor struct {
	out string
	ok  bool
}

func (s staticExecutor) Execute(context.Context, string, string) (string, bool) { return s.out, s.ok }

type fixture struct {
	assistant *Assistant
	store     storage.Storage
	sessions  *session.Memory
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T, store storage.Storage, gen string, exec executor.Executor, intake *uploads.Intake) fixture {
	t.Helper()
	logger := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())
	sessions := session.NewMemory(0)

	pol := policy.New(ranker.New(store), exec, staticGenerator(gen), logger)
	a := New(store, keywords.NewExtractor(nil), pol, feedback.NewRecorder(store, store, logger), intake, sessions, m, logger)
	return fixture{assistant: a, store: store, sessions: sessions, metrics: m}
}

func TestHelloWithEmptyStoreLearnsPlaceholder(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStorage(), "", executor.Noop{}, nil)
	ctx := context.Background()

	m, err := f.assistant.HandleMessage(ctx, Request{SessionKey: "chat-1", Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, policy.Placeholder, m.SystemResponse)
	require.NotNil(t, m.ExampleID)

	e, err := f.store.GetExample(ctx, *m.ExampleID)
	require.NoError(t, err)
	assert.Equal(t, policy.Placeholder, e.Code)
	assert.Equal(t, "Chat", e.Language)
	assert.Equal(t, "Learned from user message: hello", e.Description)
	assert.Equal(t, "chat,auto-learned,folder_structure", e.Tags)
	assert.Nil(t, e.Rating)

	stored, err := f.store.GetInteraction(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ExampleID)
	assert.Equal(t, *m.ExampleID, *stored.ExampleID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Responses.WithLabelValues("placeholder")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ExamplesLearned))

	h, err := f.assistant.History(ctx, "chat-1", 0)
	require.NoError(t, err)
	require.Len(t, h, 1)
	assert.Equal(t, m.ID, h[0].MessageID)
}

func TestReuseKeepsMatchedExampleLink(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	seeded := &models.Example{Code: "print(1)", Language: "python", Description: "prints", Rating: models.IntPtr(5)}
	require.NoError(t, store.CreateExample(ctx, seeded))

	f := newFixture(t, store, "print(2)", staticExecutor{out: "1", ok: true}, nil)

	m, err := f.assistant.HandleMessage(ctx, Request{Text: "generate python print"})
	require.NoError(t, err)

	assert.Equal(t,
		"I found a relevant python example:\n```\nprint(1)\n```\nModified:\n```\nprint(2)\n```\nExecution Result: 1",
		m.SystemResponse)
	require.NotNil(t, m.ExampleID)
	assert.Equal(t, seeded.ID, *m.ExampleID)

	learned, err := store.ListExamplesByTag(ctx, models.TagAutoLearned)
	require.NoError(t, err)
	require.Len(t, learned, 1)
	assert.Equal(t, m.SystemResponse, learned[0].Code)

	require.NoError(t, f.assistant.Rate(ctx, m.ID, 4))
	got, err := store.GetExample(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, *got.Rating)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RatingsApplied.WithLabelValues("4")))
}

func TestUnmodifiedReuseIsLearned(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	require.NoError(t, store.CreateExample(ctx, &models.Example{Code: "see docs", Language: "text", Description: "docs"}))

	f := newFixture(t, store, "", executor.Noop{}, nil)
	m, err := f.assistant.HandleMessage(ctx, Request{Text: "docs"})
	require.NoError(t, err)

	require.NotNil(t, m.ExampleID)
	learned, err := store.ListExamplesByTag(ctx, models.TagAutoLearned)
	require.NoError(t, err)
	assert.Len(t, learned, 1)
}

func TestAttachmentSummaryAppended(t *testing.T) {
	dir := t.TempDir()
	intake, err := uploads.NewIntake(dir, zap.NewNop())
	require.NoError(t, err)

	f := newFixture(t, storage.NewMemoryStorage(), "", executor.Noop{}, intake)
	m, err := f.assistant.HandleMessage(context.Background(), Request{
		Text:        "hello",
		Attachments: []uploads.File{{Name: "notes.txt", Data: []byte("hi")}},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(m.SystemResponse, policy.Placeholder+"\nUploaded Files:\nSaved: "))
	assert.True(t, strings.HasSuffix(m.SystemResponse, "_notes.txt"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UploadsSaved))
}

type failingStore struct {
	*storage.MemoryStorage
}

func (failingStore) CreateInteraction(context.Context, *models.Interaction) error {
	return errors.New("disk full")
}

func TestStoreFailureIsReturned(t *testing.T) {
	f := newFixture(t, failingStore{storage.NewMemoryStorage()}, "", executor.Noop{}, nil)

	_, err := f.assistant.HandleMessage(context.Background(), Request{Text: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RequestErrors.WithLabelValues("store")))
}

func TestRateUnknownMessage(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStorage(), "", executor.Noop{}, nil)
	err := f.assistant.Rate(context.Background(), 99, 3)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStorage(), "", executor.Noop{}, nil)
	ctx := context.Background()

	require.NoError(t, f.assistant.StartSession(ctx, "k"))
	for _, text := range []string{"one", "two", "three"} {
		_, err := f.assistant.HandleMessage(ctx, Request{SessionKey: "k", Text: text})
		require.NoError(t, err)
	}

	h, err := f.assistant.History(ctx, "k", 2)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, "two", h[0].User)
	assert.Equal(t, "three", h[1].User)

	require.NoError(t, f.assistant.ClearSession(ctx, "k"))
	h, err = f.assistant.History(ctx, "k", 0)
	require.NoError(t, err)
	assert.Empty(t, h)
}
