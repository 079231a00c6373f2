// Package assistant runs one chat turn end to end: attachments, keyword
// extraction, the response policy, persistence and learning.
package assistant

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xaenox/lisa-bot/internal/feedback"
	"github.com/xaenox/lisa-bot/internal/keywords"
	"github.com/xaenox/lisa-bot/internal/metrics"
	"github.com/xaenox/lisa-bot/internal/models"
	"github.com/xaenox/lisa-bot/internal/policy"
	"github.com/xaenox/lisa-bot/internal/session"
	"github.com/xaenox/lisa-bot/internal/storage"
	"github.com/xaenox/lisa-bot/internal/uploads"
)

type Request struct {
	SessionKey  string
	Text        string
	Attachments []uploads.File
}

type Assistant struct {
	store     storage.Storage
	extractor *keywords.Extractor
	policy    *policy.Policy
	recorder  *feedback.Recorder
	intake    *uploads.Intake
	sessions  session.Store
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// New wires the assistant. intake and sessions may be nil; a nil m gets a
// private registry.
func New(
	store storage.Storage,
	extractor *keywords.Extractor,
	pol *policy.Policy,
	recorder *feedback.Recorder,
	intake *uploads.Intake,
	sessions session.Store,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Assistant {
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &Assistant{
		store:     store,
		extractor: extractor,
		policy:    pol,
		recorder:  recorder,
		intake:    intake,
		sessions:  sessions,
		metrics:   m,
		logger:    logger.Named("assistant"),
	}
}

// HandleMessage answers req.Text and persists the exchange. The returned
// Interaction carries the reply and its message id. Only store failures are
// returned; uploads and session errors degrade.
func (a *Assistant) HandleMessage(ctx context.Context, req Request) (*models.Interaction, error) {
	start := time.Now()

	summary := a.saveAttachments(req.Attachments)

	tokens := a.extractor.Extract(req.Text)
	a.logger.Debug("Extracted keywords", zap.Strings("keywords", tokens))

	resp, err := a.policy.Respond(ctx, req.Text, tokens)
	if err != nil {
		a.metrics.RecordError("respond")
		return nil, fmt.Errorf("failed to build response: %w", err)
	}

	interaction := &models.Interaction{
		UserMessage:    req.Text,
		SystemResponse: resp.Text + summary,
		ExampleID:      resp.ExampleID,
	}
	if err := a.store.CreateInteraction(ctx, interaction); err != nil {
		a.metrics.RecordError("store")
		return nil, fmt.Errorf("failed to store interaction: %w", err)
	}

	learnedID, err := a.recorder.RecordIfLearnable(ctx, req.Text, interaction.SystemResponse)
	if err != nil {
		a.metrics.RecordError("learn")
		return nil, err
	}
	if learnedID != nil {
		a.metrics.ExamplesLearned.Inc()
		if interaction.ExampleID == nil {
			if err := a.store.SetInteractionExample(ctx, interaction.ID, *learnedID); err != nil {
				a.metrics.RecordError("store")
				return nil, fmt.Errorf("failed to link learned example: %w", err)
			}
			interaction.ExampleID = learnedID
		}
	}

	a.remember(ctx, req.SessionKey, interaction)
	a.metrics.RecordResponse(string(resp.Outcome), time.Since(start))

	a.logger.Info("Handled message",
		zap.Int64("message_id", interaction.ID),
		zap.String("outcome", string(resp.Outcome)),
		zap.Int("keywords", len(tokens)))

	return interaction, nil
}

func (a *Assistant) saveAttachments(files []uploads.File) string {
	if a.intake == nil || len(files) == 0 {
		return ""
	}
	summary, err := a.intake.Save(files)
	if err != nil {
		a.metrics.RecordError("upload")
		a.logger.Warn("Failed to save attachments", zap.Error(err))
	}
	if summary != "" {
		a.metrics.UploadsSaved.Inc()
	}
	return summary
}

func (a *Assistant) remember(ctx context.Context, key string, interaction *models.Interaction) {
	if a.sessions == nil || key == "" {
		return
	}
	entry := session.Entry{
		MessageID: interaction.ID,
		User:      interaction.UserMessage,
		Reply:     interaction.SystemResponse,
		ExampleID: interaction.ExampleID,
		At:        interaction.CreatedAt,
	}
	if err := a.sessions.Append(ctx, key, entry); err != nil {
		a.metrics.RecordError("session")
		a.logger.Warn("Failed to append to session", zap.String("session", key), zap.Error(err))
	}
}

// Rate applies rating to the example behind messageID. The range is checked
// by the caller.
func (a *Assistant) Rate(ctx context.Context, messageID int64, rating int) error {
	if err := a.recorder.ApplyRating(ctx, messageID, rating); err != nil {
		a.metrics.RecordError("rate")
		return err
	}
	a.metrics.RatingsApplied.WithLabelValues(strconv.Itoa(rating)).Inc()
	return nil
}

func (a *Assistant) StartSession(ctx context.Context, key string) error {
	if a.sessions == nil {
		return nil
	}
	return a.sessions.Start(ctx, key)
}

func (a *Assistant) ClearSession(ctx context.Context, key string) error {
	if a.sessions == nil {
		return nil
	}
	return a.sessions.Clear(ctx, key)
}

func (a *Assistant) History(ctx context.Context, key string, limit int) ([]session.Entry, error) {
	if a.sessions == nil {
		return nil, nil
	}
	return a.sessions.History(ctx, key, limit)
}
