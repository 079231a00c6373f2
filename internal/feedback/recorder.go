// Package feedback turns conversations into new training examples and
// applies user ratings to them.
package feedback

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/lisa-bot/internal/models"
	"github.com/xaenox/lisa-bot/internal/storage"
)

const (
	// placeholderMarker is a prefix of policy.Placeholder.
	placeholderMarker = "I'm still learning"
	codeMarker        = "```"

	learnedLanguage = "Chat"
)

var learnedTags = strings.Join([]string{
	models.TagChat,
	models.TagAutoLearned,
	models.TagFolderStructure,
}, ",")

type Recorder struct {
	examples     storage.ExampleStore
	interactions storage.InteractionStore
	logger       *zap.Logger
}

func NewRecorder(examples storage.ExampleStore, interactions storage.InteractionStore, logger *zap.Logger) *Recorder {
	return &Recorder{
		examples:     examples,
		interactions: interactions,
		logger:       logger.Named("feedback"),
	}
}

// Learnable reports whether a response should be kept as an example.
func Learnable(systemResponse string) bool {
	return strings.Contains(systemResponse, placeholderMarker) ||
		strings.Contains(systemResponse, codeMarker)
}

// RecordIfLearnable stores the response as a Chat example when it carries the
// placeholder or a code block. It returns nil when nothing was stored.
// Placeholder answers are stored too.
func (r *Recorder) RecordIfLearnable(ctx context.Context, userMessage, systemResponse string) (*int64, error) {
	if !Learnable(systemResponse) {
		return nil, nil
	}

	example := &models.Example{
		Code:        systemResponse,
		Language:    learnedLanguage,
		Description: "Learned from user message: " + userMessage,
		Tags:        learnedTags,
	}
	if err := r.examples.CreateExample(ctx, example); err != nil {
		return nil, fmt.Errorf("failed to store learned example: %w", err)
	}

	r.logger.Info("Learned from chat",
		zap.Int64("example_id", example.ID),
		zap.String("description", example.Description))

	return models.Int64Ptr(example.ID), nil
}

// ApplyRating overwrites the rating of the example linked to a message.
// The rating range is not checked here; callers validate it.
func (r *Recorder) ApplyRating(ctx context.Context, messageID int64, rating int) error {
	interaction, err := r.interactions.GetInteraction(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to load message %d: %w", messageID, err)
	}

	if interaction.ExampleID == nil {
		r.logger.Debug("Message has no example, rating ignored", zap.Int64("message_id", messageID))
		return nil
	}

	if err := r.examples.UpdateExampleRating(ctx, *interaction.ExampleID, rating); err != nil {
		return fmt.Errorf("failed to rate example %d: %w", *interaction.ExampleID, err)
	}

	r.logger.Info("Rated message",
		zap.Int64("message_id", messageID),
		zap.Int64("example_id", *interaction.ExampleID),
		zap.Int("rating", rating))
	return nil
}
