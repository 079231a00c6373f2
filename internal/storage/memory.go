package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/xaenox/lisa-bot/internal/models"
)

type MemoryStorage struct {
	mu           sync.RWMutex
	examples     []*models.Example
	interactions map[int64]*models.Interaction
	nextExample  int64
	nextMessage  int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		interactions: make(map[int64]*models.Interaction),
	}
}

// Example methods
func (s *MemoryStorage) CreateExample(ctx context.Context, example *models.Example) error {
	if err := validateExample(example); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextExample++
	example.ID = s.nextExample
	s.examples = append(s.examples, copyExample(example))
	return nil
}

func (s *MemoryStorage) GetExample(ctx context.Context, id int64) (*models.Example, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e := s.findExample(id); e != nil {
		return copyExample(e), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) SearchExamples(ctx context.Context, tokens []string) ([]*models.Example, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Example
	for _, e := range s.examples {
		if matchesAny(e, tokens) {
			result = append(result, copyExample(e))
		}
	}
	return result, nil
}

func (s *MemoryStorage) UpdateExampleRating(ctx context.Context, id int64, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.findExample(id)
	if e == nil {
		return ErrNotFound
	}
	e.Rating = models.IntPtr(rating)
	return nil
}

func (s *MemoryStorage) ListExamplesByTag(ctx context.Context, tag string) ([]*models.Example, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Example
	for _, e := range s.examples {
		if strings.Contains(e.Tags, tag) {
			result = append(result, copyExample(e))
		}
	}
	return result, nil
}

func (s *MemoryStorage) ListTrainingExamples(ctx context.Context) ([]*models.Example, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Example
	for _, e := range s.examples {
		if e.Description == "" || e.Code == "" {
			continue
		}
		if e.Rating == nil || *e.Rating < 0 {
			continue
		}
		result = append(result, copyExample(e))
	}
	return result, nil
}

// Interaction methods
func (s *MemoryStorage) CreateInteraction(ctx context.Context, interaction *models.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMessage++
	interaction.ID = s.nextMessage
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}
	stored := *interaction
	s.interactions[stored.ID] = &stored
	return nil
}

func (s *MemoryStorage) GetInteraction(ctx context.Context, id int64) (*models.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, exists := s.interactions[id]; exists {
		result := *m
		return &result, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) SetInteractionExample(ctx context.Context, id, exampleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, exists := s.interactions[id]
	if !exists {
		return ErrNotFound
	}
	m.ExampleID = models.Int64Ptr(exampleID)
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

func (s *MemoryStorage) findExample(id int64) *models.Example {
	for _, e := range s.examples {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func matchesAny(e *models.Example, tokens []string) bool {
	fields := [...]string{
		strings.ToLower(e.Code),
		strings.ToLower(e.Description),
		strings.ToLower(e.Tags),
	}
	for _, token := range tokens {
		token = strings.ToLower(token)
		for _, f := range fields {
			if strings.Contains(f, token) {
				return true
			}
		}
	}
	return false
}

func copyExample(e *models.Example) *models.Example {
	c := *e
	if e.Rating != nil {
		c.Rating = models.IntPtr(*e.Rating)
	}
	return &c
}
