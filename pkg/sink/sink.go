// Package sink persists the result of an extraction run.
//
// JSONFileSink writes one document per key to {dir}/{key}_data.json using a
// temporary file and rename, so a reader never observes a partial file.
// WriterSink encodes the same document to any io.Writer.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"igextract/pkg/models"
)

// Sink receives a profile (possibly nil) and its posts under a key
type Sink interface {
	Persist(ctx context.Context, profile *models.Profile, posts []models.Post, key string) error
}

// Document is the persisted shape
type Document struct {
	Profile *models.Profile `json:"profile"`
	Posts   []models.Post   `json:"posts"`
}

func encode(profile *models.Profile, posts []models.Post, pretty bool) ([]byte, error) {
	if posts == nil {
		posts = []models.Post{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(Document{Profile: profile, Posts: posts}); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// JSONFileSink writes documents into a directory
type JSONFileSink struct {
	dir    string
	pretty bool
	mu     sync.Mutex
}

// NewJSONFileSink creates the output directory if needed
func NewJSONFileSink(dir string, pretty bool) (*JSONFileSink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &JSONFileSink{dir: dir, pretty: pretty}, nil
}

// Path returns the file a key is written to
func (s *JSONFileSink) Path(key string) string {
	return filepath.Join(s.dir, key+"_data.json")
}

// Persist writes the document for key, replacing any previous one
func (s *JSONFileSink) Persist(ctx context.Context, profile *models.Profile, posts []models.Post, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encode(profile, posts, s.pretty)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filename := s.Path(key)
	tempFile := filename + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid sink key %q", key)
	}
	return nil
}

// WriterSink encodes documents to a writer
type WriterSink struct {
	w      io.Writer
	pretty bool
	mu     sync.Mutex
}

// NewWriterSink creates a WriterSink
func NewWriterSink(w io.Writer, pretty bool) *WriterSink {
	return &WriterSink{w: w, pretty: pretty}
}

// Persist writes one document; the key is not part of the output
func (s *WriterSink) Persist(ctx context.Context, profile *models.Profile, posts []models.Post, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encode(profile, posts, s.pretty)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}
