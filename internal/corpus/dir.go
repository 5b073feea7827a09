package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"web_ranker/internal/models"
)

// Dir loads every .html/.htm file below Root. Hidden files and directories
// are skipped. The document name is the file name.
type Dir struct {
	Root   string
	Logger zerolog.Logger
}

func (d Dir) Load(ctx context.Context) ([]models.RawDocument, error) {
	var docs []models.RawDocument
	err := filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != d.Root && strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !isMarkup(entry.Name()) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, models.RawDocument{
			Name:        entry.Name(),
			URL:         path,
			ContentType: "text/html",
			Content:     content,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus %s: %w", d.Root, err)
	}

	d.Logger.Info().Str("root", d.Root).Int("documents", len(docs)).Msg("corpus directory loaded")
	return uniqueNames(docs, d.Logger), nil
}

func isMarkup(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return true
	}
	return false
}
