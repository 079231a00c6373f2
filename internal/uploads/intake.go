// Package uploads stores message attachments on disk.
package uploads

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// File is an attachment as received from the transport.
type File struct {
	Name string
	Data []byte
}

type Intake struct {
	dir    string
	logger *zap.Logger
}

func NewIntake(dir string, logger *zap.Logger) (*Intake, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Intake{dir: dir, logger: logger.Named("uploads")}, nil
}

func (i *Intake) Dir() string {
	return i.dir
}

// Save writes every named file under a unique name and returns a summary
// for the chat reply, or "" when nothing was saved.
func (i *Intake) Save(files []File) (string, error) {
	var saved []string
	for _, f := range files {
		if f.Name == "" {
			continue
		}

		unique := strings.ReplaceAll(uuid.NewString(), "-", "") + "_" + SecureFilename(f.Name)
		path := filepath.Join(i.dir, unique)
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return summary(saved), fmt.Errorf("failed to save %s: %w", f.Name, err)
		}

		saved = append(saved, "Saved: "+unique)
		i.logger.Info("Uploaded file", zap.String("name", unique), zap.Int("bytes", len(f.Data)))
	}
	return summary(saved), nil
}

func summary(saved []string) string {
	if len(saved) == 0 {
		return ""
	}
	return "\nUploaded Files:\n" + strings.Join(saved, "\n")
}

// SecureFilename reduces name to ASCII letters, digits, '.', '-' and '_'
// without path separators or leading dots.
func SecureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}

	cleaned := strings.TrimLeft(b.String(), "._")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}
