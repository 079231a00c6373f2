package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaenox/lisa-bot/internal/models"
	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidExample = errors.New("example needs code or description")
)

// ExampleStore holds the learning corpus.
type ExampleStore interface {
	CreateExample(ctx context.Context, example *models.Example) error
	GetExample(ctx context.Context, id int64) (*models.Example, error)
	// SearchExamples returns every example whose code, description or tags
	// contain any of the tokens as a case-insensitive substring, in
	// insertion order.
	SearchExamples(ctx context.Context, tokens []string) ([]*models.Example, error)
	UpdateExampleRating(ctx context.Context, id int64, rating int) error
	ListExamplesByTag(ctx context.Context, tag string) ([]*models.Example, error)
	// ListTrainingExamples returns examples with a description, code and a
	// non-negative rating, in insertion order.
	ListTrainingExamples(ctx context.Context) ([]*models.Example, error)
}

// InteractionStore holds the message log.
type InteractionStore interface {
	CreateInteraction(ctx context.Context, interaction *models.Interaction) error
	GetInteraction(ctx context.Context, id int64) (*models.Interaction, error)
	SetInteractionExample(ctx context.Context, id, exampleID int64) error
}

type Storage interface {
	ExampleStore
	InteractionStore
	Close() error
}

func validateExample(example *models.Example) error {
	if example.Code == "" && example.Description == "" {
		return ErrInvalidExample
	}
	return nil
}

// Open builds the Storage selected by config.Driver.
func Open(config DatabaseConfig, logger *zap.Logger) (Storage, error) {
	switch config.Driver {
	case "", "memory":
		logger.Info("Using in-memory storage")
		return NewMemoryStorage(), nil
	case "postgres":
		logger.Info("Using PostgreSQL storage", zap.String("host", config.Host), zap.String("dbname", config.DBName))
		return NewPostgresStorage(config, logger)
	case "sqlite":
		logger.Info("Using SQLite storage", zap.String("path", config.Path))
		return NewSQLiteStorage(config.Path, config.MaxConns, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", config.Driver)
	}
}
