package finetune

import (
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"

	"github.com/xaenox/lisa-bot/internal/models"
)

// FormatPairs turns training examples into prompt/target rows.
func FormatPairs(examples []*models.Example) []models.TrainingPair {
	pairs := make([]models.TrainingPair, 0, len(examples))
	for _, e := range examples {
		pairs = append(pairs, models.TrainingPair{
			ExampleID: e.ID,
			Prompt:    fmt.Sprintf("Generate code for: %s in %s", e.Description, e.Language),
			Target:    strings.TrimSpace(e.Code),
		})
	}
	return pairs
}

// Truncator cuts text to a token budget using the GPT-4o encoding.
type Truncator struct {
	enc       tokenizer.Codec
	maxTokens int
}

func NewTruncator(maxTokens int) (*Truncator, error) {
	enc, err := tokenizer.ForModel(tokenizer.GPT4o)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer: %w", err)
	}
	return &Truncator{enc: enc, maxTokens: maxTokens}, nil
}

// Truncate returns s unchanged when it fits, otherwise its first maxTokens
// tokens decoded back to text. A non-positive budget disables truncation.
func (t *Truncator) Truncate(s string) (string, error) {
	if t.maxTokens <= 0 {
		return s, nil
	}

	ids, _, err := t.enc.Encode(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode string: %w", err)
	}
	if len(ids) <= t.maxTokens {
		return s, nil
	}

	return t.enc.Decode(ids[:t.maxTokens])
}

func (t *Truncator) Count(s string) (int, error) {
	ids, _, err := t.enc.Encode(s)
	if err != nil {
		return 0, fmt.Errorf("failed to encode string: %w", err)
	}
	return len(ids), nil
}

func truncatePairs(t *Truncator, pairs []models.TrainingPair) error {
	for i := range pairs {
		prompt, err := t.Truncate(pairs[i].Prompt)
		if err != nil {
			return err
		}
		target, err := t.Truncate(pairs[i].Target)
		if err != nil {
			return err
		}
		pairs[i].Prompt, pairs[i].Target = prompt, target
	}
	return nil
}
