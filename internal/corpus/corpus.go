// Package corpus moves folders of source files in and out of the example
// store.
package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"github.com/xaenox/lisa-bot/internal/models"
	"github.com/xaenox/lisa-bot/internal/storage"
)

const folderLanguage = "text"

type Corpus struct {
	store  storage.ExampleStore
	logger *zap.Logger
}

func New(store storage.ExampleStore, logger *zap.Logger) *Corpus {
	return &Corpus{store: store, logger: logger.Named("corpus")}
}

// Ingest stores every file under root as a folder_structure example whose
// description is the slash-separated path relative to root. Files matched by
// a .gitignore and non UTF-8 files are skipped.
func (c *Corpus) Ingest(ctx context.Context, root string) (int, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return 0, fmt.Errorf("error getting absolute path: %w", err)
	}

	files, err := c.collect(root)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return count, fmt.Errorf("error reading %s: %w", path, err)
		}
		if !utf8.Valid(content) {
			c.logger.Warn("Skipping non UTF-8 file", zap.String("path", path))
			continue
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return count, fmt.Errorf("error resolving %s: %w", path, err)
		}

		example := &models.Example{
			Code:        string(content),
			Language:    folderLanguage,
			Description: filepath.ToSlash(rel),
			Tags:        models.TagFolderStructure,
		}
		if err := c.store.CreateExample(ctx, example); err != nil {
			return count, fmt.Errorf("error storing %s: %w", rel, err)
		}

		count++
		c.logger.Info("Processed file", zap.String("path", example.Description), zap.Int64("example_id", example.ID))
	}

	return count, nil
}

// collect walks root twice: first to compile .gitignore files, then to pick
// the files they do not exclude.
func (c *Corpus) collect(root string) ([]string, error) {
	matchers := make(map[string]*ignore.GitIgnore)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == ".gitignore" {
			matcher, err := ignore.CompileIgnoreFile(path)
			if err != nil {
				return fmt.Errorf("error compiling .gitignore at %s: %w", path, err)
			}
			matchers[filepath.Dir(path)] = matcher
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory for .gitignore files: %w", err)
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == ".gitignore" || !info.Mode().IsRegular() {
			return nil
		}
		if ignored(path, root, matchers) {
			c.logger.Debug("Ignoring file", zap.String("path", path))
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	return files, nil
}

// ignored checks path against the matcher of every ancestor directory.
func ignored(path, root string, matchers map[string]*ignore.GitIgnore) bool {
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if m, ok := matchers[dir]; ok {
			rel, err := filepath.Rel(dir, path)
			if err == nil && m.MatchesPath(filepath.ToSlash(rel)) {
				return true
			}
		}
		if dir == root || dir == filepath.Dir(dir) {
			return false
		}
	}
}

// Export writes every folder_structure example to root/description.
// Descriptions that are not local paths are skipped.
func (c *Corpus) Export(ctx context.Context, root string) (int, error) {
	examples, err := c.store.ListExamplesByTag(ctx, models.TagFolderStructure)
	if err != nil {
		return 0, fmt.Errorf("error listing examples: %w", err)
	}

	count := 0
	for _, e := range examples {
		rel := filepath.FromSlash(e.Description)
		if !filepath.IsLocal(rel) {
			c.logger.Warn("Skipping example with non-local path",
				zap.Int64("example_id", e.ID),
				zap.String("description", e.Description))
			continue
		}

		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return count, fmt.Errorf("error creating directory for %s: %w", rel, err)
		}
		if err := os.WriteFile(path, []byte(e.Code), 0o644); err != nil {
			return count, fmt.Errorf("error writing %s: %w", rel, err)
		}

		count++
		c.logger.Info("Created file", zap.String("path", path))
	}

	return count, nil
}

type Counts struct {
	Files    int
	Folders  int
	TopLevel int
}

// Count returns recursive file and folder counts and the number of direct
// entries of root.
func Count(root string) (Counts, error) {
	var counts Counts

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			counts.Folders++
		} else {
			counts.Files++
		}
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("error walking %s: %w", root, err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return Counts{}, fmt.Errorf("error reading %s: %w", root, err)
	}
	counts.TopLevel = len(entries)

	return counts, nil
}

// String formats counts for chat replies and CLI output.
func (c Counts) String() string {
	return strings.Join([]string{
		fmt.Sprintf("files: %d", c.Files),
		fmt.Sprintf("folders: %d", c.Folders),
		fmt.Sprintf("entries: %d", c.TopLevel),
	}, ", ")
}
