// Package store persists crawled notes as Markdown records with an optional
// PNG alongside, in a single flat directory.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/use-agent/rednote/models"
)

// PlaceholderImage is linked from records saved without an image.
const PlaceholderImage = "https://via.placeholder.com/300x200?text=No+Image"

// ImageRoute is the URL prefix under which saved images are served.
const ImageRoute = "/notes_img/"

const maxTitleRunes = 30

var unsafeRun = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Store writes and reads note files under one directory.
type Store struct {
	dir string
}

// New creates dir if needed and returns a Store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeStorage, "failed to create data dir", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string { return s.dir }

// SafeTitle turns a note title into a file name fragment: every run of
// characters other than letters, digits and underscore becomes "_", and the
// result is cut to 30 runes.
func SafeTitle(title string) string {
	safe := unsafeRun.ReplaceAllString(title, "_")
	if r := []rune(safe); len(r) > maxTitleRunes {
		safe = string(r[:maxTitleRunes])
	}
	if safe == "" {
		safe = "_"
	}
	return safe
}

// BaseName returns the shared file name stem for a record, e.g.
// note_冬季穿搭_2.
func BaseName(title string, ordinal int) string {
	return fmt.Sprintf("note_%s_%d", SafeTitle(title), ordinal)
}

// Save writes rec as Markdown and, when image is non-empty, the PNG next
// to it. ordinal is the 1-based success count within the crawl run. It
// returns the names of the files written.
func (s *Store) Save(rec models.NoteRecord, ordinal int, image []byte) ([]string, error) {
	base := BaseName(rec.Title, ordinal)
	mdName, pngName := base+".md", base+".png"

	imageRef := PlaceholderImage
	var files []string
	if len(image) > 0 {
		if err := s.write(pngName, image); err != nil {
			return nil, err
		}
		files = append(files, pngName)
		imageRef = ImageRoute + pngName
	}

	if err := s.write(mdName, []byte(Render(rec, imageRef))); err != nil {
		return nil, err
	}
	files = append([]string{mdName}, files...)

	slog.Info("note saved", "file", mdName, "image", len(image) > 0)
	return files, nil
}

// write replaces name atomically so readers never see a partial file.
func (s *Store) write(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return models.NewScrapeError(models.ErrCodeStorage, "failed to write "+name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return models.NewScrapeError(models.ErrCodeStorage, "failed to write "+name, err)
	}
	if err := tmp.Close(); err != nil {
		return models.NewScrapeError(models.ErrCodeStorage, "failed to write "+name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return models.NewScrapeError(models.ErrCodeStorage, "failed to write "+name, err)
	}
	return nil
}

// List returns every Markdown record, ordered by file name.
func (s *Store) List() ([]models.NoteFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.NoteFile{}, nil
		}
		return nil, models.NewScrapeError(models.ErrCodeStorage, "failed to list notes", err)
	}

	notes := make([]models.NoteFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			slog.Warn("skipping unreadable note", "file", e.Name(), "error", err)
			continue
		}
		notes = append(notes, models.NoteFile{Filename: e.Name(), Content: string(data)})
	}
	return notes, nil
}

// Open opens a stored file by base name. Names with path components are
// rejected.
func (s *Store) Open(name string) (*os.File, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid file name", nil)
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.NewScrapeError(models.ErrCodeNotFound, "file not found: "+name, err)
		}
		return nil, models.NewScrapeError(models.ErrCodeStorage, "failed to open "+name, err)
	}
	return f, nil
}
