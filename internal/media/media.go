// Package media stores message media and previews as opaque-ID blobs
// under the session directory.
package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	mediaDirName   = "chat-media"
	previewDirName = "chat-previews"
)

// Store is a local blob store for chat media and preview thumbnails.
type Store struct {
	mediaDir   string
	previewDir string
}

// NewStore creates the blob directories under dir.
func NewStore(dir string) (*Store, error) {
	s := &Store{
		mediaDir:   filepath.Join(dir, mediaDirName),
		previewDir: filepath.Join(dir, previewDirName),
	}
	for _, d := range []string{s.mediaDir, s.previewDir} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return nil, fmt.Errorf("create media dir: %w", err)
		}
	}
	return s, nil
}

// NewID generates a fresh opaque media ID.
func (s *Store) NewID() string {
	return uuid.New().String()
}

// SaveMedia writes full-resolution media bytes under id.
func (s *Store) SaveMedia(id string, data []byte) error {
	return save(s.mediaDir, id, data)
}

// SavePreview writes preview bytes under id.
func (s *Store) SavePreview(id string, data []byte) error {
	return save(s.previewDir, id, data)
}

// LoadMedia reads full-resolution media bytes for id.
func (s *Store) LoadMedia(id string) ([]byte, error) {
	return load(s.mediaDir, id)
}

// LoadPreview reads preview bytes for id.
func (s *Store) LoadPreview(id string) ([]byte, error) {
	return load(s.previewDir, id)
}

func save(dir, id string, data []byte) error {
	if err := os.WriteFile(filepath.Join(dir, id), data, 0600); err != nil {
		return fmt.Errorf("save blob %q: %w", id, err)
	}
	return nil
}

func load(dir, id string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, id))
	if err != nil {
		return nil, fmt.Errorf("load blob %q: %w", id, err)
	}
	return data, nil
}
