package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/lisa-bot/internal/executor"
	"github.com/xaenox/lisa-bot/internal/keywords"
	"github.com/xaenox/lisa-bot/internal/models"
	"github.com/xaenox/lisa-bot/internal/ranker"
	"github.com/xaenox/lisa-bot/internal/storage"
)

type fakeGenerator struct {
	out   string
	calls []string
	seeds []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt, seed string) string {
	f.calls = append(f.calls, prompt)
	f.seeds = append(f.seeds, seed)
	return f.out
}

type fakeExecutor struct {
	out string
	ok  bool
}

func (f fakeExecutor) Execute(context.Context, string, string) (string, bool) { return f.out, f.ok }

func newPolicy(store storage.ExampleStore, gen *fakeGenerator, exec executor.Executor) *Policy {
	return New(ranker.New(store), exec, gen, zap.NewNop())
}

func respond(t *testing.T, p *Policy, message string) Response {
	t.Helper()
	resp, err := p.Respond(context.Background(), message, keywords.NewExtractor(nil).Extract(message))
	require.NoError(t, err)
	return resp
}

func TestPlaceholderWithoutMatchOrIntent(t *testing.T) {
	gen := &fakeGenerator{out: "print(1)"}
	p := newPolicy(storage.NewMemoryStorage(), gen, nil)

	for _, msg := range []string{"hello", "", "what is a monad", "the"} {
		resp := respond(t, p, msg)
		assert.Equal(t, Placeholder, resp.Text, msg)
		assert.Equal(t, OutcomePlaceholder, resp.Outcome)
		assert.Nil(t, resp.ExampleID)
	}
	assert.Empty(t, gen.calls)
}

func TestGenerateOnIntent(t *testing.T) {
	gen := &fakeGenerator{out: "func main() {}"}
	p := newPolicy(storage.NewMemoryStorage(), gen, nil)

	resp := respond(t, p, "Please write a go program")

	assert.Equal(t, OutcomeGenerate, resp.Outcome)
	assert.Equal(t, "Generated code:\n```\nfunc main() {}\n```", resp.Text)
	assert.Nil(t, resp.ExampleID)
	assert.Equal(t, []string{"Please write a go program"}, gen.calls)
	assert.Equal(t, []string{""}, gen.seeds)
}

func TestGenerateFailureFallsBackToPlaceholder(t *testing.T) {
	p := newPolicy(storage.NewMemoryStorage(), &fakeGenerator{}, nil)

	resp := respond(t, p, "create something")
	assert.Equal(t, Placeholder, resp.Text)
	assert.Equal(t, OutcomePlaceholder, resp.Outcome)
}

func TestReuseMatchedExample(t *testing.T) {
	store := storage.NewMemoryStorage()
	e := &models.Example{Code: "print(1)", Language: "python", Description: "prints", Rating: models.IntPtr(5)}
	require.NoError(t, store.CreateExample(context.Background(), e))

	gen := &fakeGenerator{out: "print(2)"}
	p := newPolicy(store, gen, fakeExecutor{out: "1", ok: true})

	resp := respond(t, p, "generate python print")

	assert.Equal(t, OutcomeReuse, resp.Outcome)
	require.NotNil(t, resp.ExampleID)
	assert.Equal(t, e.ID, *resp.ExampleID)
	assert.Equal(t,
		"I found a relevant python example:\n```\nprint(1)\n```\nModified:\n```\nprint(2)\n```\nExecution Result: 1",
		resp.Text)
	assert.Equal(t, []string{"print(1)"}, gen.seeds)
}

func TestReuseOmitsMissingPieces(t *testing.T) {
	store := storage.NewMemoryStorage()
	e := &models.Example{Code: "x = 1", Language: "text", Description: "assignment"}
	require.NoError(t, store.CreateExample(context.Background(), e))

	p := newPolicy(store, &fakeGenerator{}, executor.Noop{})

	resp := respond(t, p, "assignment")
	assert.Equal(t, "I found a relevant text example:\n```\nx = 1\n```", resp.Text)
}

func TestHasIntent(t *testing.T) {
	assert.True(t, HasIntent("WRITE me a loop"))
	assert.True(t, HasIntent("can you rewrite this"))
	assert.True(t, HasIntent("generate"))
	assert.False(t, HasIntent("hello there"))
}
