// Package meta loads YAML and JSON documents through afs, expanding
// ${env.NAME} references before decoding.
package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// Service reads documents relative to a base URL.
type Service struct {
	fs      afs.Service
	baseURL string
	options []storage.Option
}

// BaseURL returns the normalized base URL.
func (s *Service) BaseURL() string {
	return s.baseURL
}

// URL resolves location against the base URL; absolute URLs are returned as is.
func (s *Service) URL(location string) string {
	if location == "" {
		return s.baseURL
	}
	if !url.IsRelative(location) || s.baseURL == "" {
		return url.Normalize(location, file.Scheme)
	}
	return url.Join(s.baseURL, location)
}

// Exists reports whether a document exists at location.
func (s *Service) Exists(ctx context.Context, location string) (bool, error) {
	return s.fs.Exists(ctx, s.URL(location), s.options...)
}

// Download returns raw document content.
func (s *Service) Download(ctx context.Context, location string) ([]byte, error) {
	URL := s.URL(location)
	data, err := s.fs.DownloadWithURL(ctx, URL, s.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", URL, err)
	}
	return data, nil
}

// Load downloads and decodes the document at location into target.
func (s *Service) Load(ctx context.Context, location string, target interface{}) error {
	data, err := s.Download(ctx, location)
	if err != nil {
		return err
	}
	return Decode(location, data, target)
}

// List returns the objects directly under location.
func (s *Service) List(ctx context.Context, location string) ([]storage.Object, error) {
	URL := s.URL(location)
	objects, err := s.fs.List(ctx, URL, s.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", URL, err)
	}
	return objects, nil
}

// Decode expands env references and decodes JSON when name ends with .json, YAML otherwise.
func Decode(name string, data []byte, target interface{}) error {
	expanded := []byte(ExpandEnv(string(data)))
	var err error
	if strings.EqualFold(path.Ext(name), ".json") {
		err = json.Unmarshal(expanded, target)
	} else {
		err = yaml.Unmarshal(expanded, target)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// New creates a meta service; a nil fs defaults to afs.New().
func New(fs afs.Service, baseURL string, options ...storage.Option) *Service {
	if fs == nil {
		fs = afs.New()
	}
	if baseURL != "" {
		baseURL = url.Normalize(baseURL, file.Scheme)
	}
	return &Service{fs: fs, baseURL: baseURL, options: options}
}
