package feedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/lisa-bot/internal/models"
	"github.com/xaenox/lisa-bot/internal/storage"
)

func newRecorder() (*Recorder, *storage.MemoryStorage) {
	store := storage.NewMemoryStorage()
	return NewRecorder(store, store, zap.NewNop()), store
}

func TestRecordIfLearnable(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     bool
	}{
		{name: "placeholder", response: "I'm still learning! Could you provide a code example or more info?", want: true},
		{name: "code block", response: "Generated code:\n```\nx\n```", want: true},
		{name: "plain text", response: "Sure, here you go.", want: false},
		{name: "empty", response: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newRecorder()
			ctx := context.Background()

			id, err := r.RecordIfLearnable(ctx, "hello", tt.response)
			require.NoError(t, err)

			if !tt.want {
				assert.Nil(t, id)
				return
			}

			require.NotNil(t, id)
			e, err := store.GetExample(ctx, *id)
			require.NoError(t, err)
			assert.Equal(t, tt.response, e.Code)
			assert.Equal(t, "Chat", e.Language)
			assert.Equal(t, "Learned from user message: hello", e.Description)
			assert.True(t, e.HasTag(models.TagChat))
			assert.True(t, e.HasTag(models.TagAutoLearned))
			assert.True(t, e.HasTag(models.TagFolderStructure))
			assert.Nil(t, e.Rating)
		})
	}
}

func TestApplyRating(t *testing.T) {
	r, store := newRecorder()
	ctx := context.Background()

	e := &models.Example{Code: "print(1)", Description: "prints"}
	require.NoError(t, store.CreateExample(ctx, e))
	m := &models.Interaction{UserMessage: "q", SystemResponse: "a", ExampleID: models.Int64Ptr(e.ID)}
	require.NoError(t, store.CreateInteraction(ctx, m))

	require.NoError(t, r.ApplyRating(ctx, m.ID, 4))
	require.NoError(t, r.ApplyRating(ctx, m.ID, 4))

	got, err := store.GetExample(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4, *got.Rating)

	// last write wins
	require.NoError(t, r.ApplyRating(ctx, m.ID, 1))
	got, _ = store.GetExample(ctx, e.ID)
	assert.Equal(t, 1, *got.Rating)
}

func TestApplyRatingWithoutExampleIsNoop(t *testing.T) {
	r, store := newRecorder()
	ctx := context.Background()

	m := &models.Interaction{UserMessage: "q", SystemResponse: "a"}
	require.NoError(t, store.CreateInteraction(ctx, m))

	assert.NoError(t, r.ApplyRating(ctx, m.ID, 5))
}

func TestApplyRatingUnknownMessage(t *testing.T) {
	r, _ := newRecorder()
	err := r.ApplyRating(context.Background(), 42, 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
