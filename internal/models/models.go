package models

import (
	"strings"
	"time"
)

// Provenance tags attached to examples.
const (
	TagFolderStructure = "folder_structure"
	TagChat            = "chat"
	TagAutoLearned     = "auto-learned"
)

// Example represents a reusable code artifact in the learning corpus
type Example struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Language    string `json:"language"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
	Rating      *int   `json:"rating,omitempty"`
}

// TagList splits the comma-separated tags.
func (e *Example) TagList() []string {
	if e.Tags == "" {
		return nil
	}
	parts := strings.Split(e.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func (e *Example) HasTag(tag string) bool {
	for _, t := range e.TagList() {
		if t == tag {
			return true
		}
	}
	return false
}

// EffectiveRating is the rating used for ranking; unrated examples count as 0.
func (e *Example) EffectiveRating() int {
	if e.Rating == nil {
		return 0
	}
	return *e.Rating
}

// Interaction represents one request/response exchange
type Interaction struct {
	ID             int64     `json:"id"`
	UserMessage    string    `json:"user_message"`
	SystemResponse string    `json:"system_response"`
	ExampleID      *int64    `json:"learning_data_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TrainingPair is a single (prompt, target) row fed to the trainer
type TrainingPair struct {
	ExampleID int64  `json:"example_id"`
	Prompt    string `json:"prompt"`
	Target    string `json:"target"`
}

// ModelArtifact describes a trained generative model
type ModelArtifact struct {
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	BaseModel     string    `json:"base_model"`
	JobID         string    `json:"job_id,omitempty"`
	TrainingPairs int       `json:"training_pairs"`
	Epochs        int       `json:"epochs"`
	BatchSize     int       `json:"batch_size"`
	TrainedAt     time.Time `json:"trained_at"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}
