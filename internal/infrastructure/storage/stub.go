// Package storage provides object storage implementations for file operations.
package storage

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"

	"github.com/restocost/backend/internal/application/costing"
)

// StubArchiver is a placeholder implementation of Archiver.
// It records nothing and only fabricates archive URLs.
// Use this for development until a real storage backend is configured.
type StubArchiver struct {
	// BaseURL is the base URL for generated archive URLs.
	// Defaults to "s3://rejected-invoices" if not set.
	BaseURL string
}

// NewStubArchiver creates a new StubArchiver
func NewStubArchiver() *StubArchiver {
	return &StubArchiver{
		BaseURL: "s3://rejected-invoices",
	}
}

// Ensure StubArchiver implements Archiver
var _ costing.Archiver = (*StubArchiver)(nil)

// Archive fabricates an archive URL without storing anything.
func (s *StubArchiver) Archive(_ context.Context, filePath string) (string, error) {
	if filePath == "" {
		return "", errors.New("file path is required")
	}
	key := path.Join(strings.TrimPrefix(filepath.ToSlash(filePath), "/"))
	return s.BaseURL + "/" + key, nil
}
