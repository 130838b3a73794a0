package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/service/dao"
	"github.com/viant/jobrunner/service/dao/criteria"
	"github.com/viant/jobrunner/service/dao/jobs"
)

// Service stores one JSON document per job under a base URL.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

var _ jobs.Service = (*Service)(nil)

// Save persists a record.
func (s *Service) Save(ctx context.Context, record *job.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	if record.ID == "" {
		return dao.ErrInvalidID
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", record.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	filePath := s.recordPath(record.ID)
	if err = s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save job to file %s: %w", filePath, err)
	}
	return nil
}

// Load retrieves a record.
func (s *Service) Load(ctx context.Context, id string) (*job.Record, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath := s.recordPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check if job exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("job %s: %w", id, dao.ErrNotFound)
	}

	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	var record job.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}
	return &record, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.recordPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check if job exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("job %s: %w", id, dao.ErrNotFound)
	}
	if err := s.fs.Delete(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete job file: %w", err)
	}
	return nil
}

// List returns records matching parameters ordered by submission time.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*job.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list job files: %w", err)
	}

	var records []*job.Record
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			slog.WarnContext(ctx, "failed to read job file", "url", object.URL(), "error", err)
			continue
		}
		var record job.Record
		if err := json.Unmarshal(data, &record); err != nil {
			slog.WarnContext(ctx, "failed to unmarshal job file", "url", object.URL(), "error", err)
			continue
		}
		if !criteria.MatchRecord(&record, parameters) {
			continue
		}
		records = append(records, &record)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return submittedAt(records[i]).Before(submittedAt(records[j]))
	})
	return records, nil
}

func (s *Service) OnTimestamp(ctx context.Context, aJob *job.Job, _ job.Timestamp) error {
	return s.Save(ctx, aJob.Record())
}

func (s *Service) OnFinalized(ctx context.Context, aJob *job.Job) error {
	return s.Save(ctx, aJob.Record())
}

func (s *Service) recordPath(id string) string {
	return url.Join(s.basePath, id+".json")
}

// New creates a filesystem job store rooted at basePath.
func New(basePath string) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	fs := afs.New()
	ctx := context.Background()
	exists, _ := fs.Exists(ctx, basePath)
	if !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	basePath = url.Normalize(basePath, file.Scheme)
	return &Service{basePath: basePath, fs: fs}, nil
}
