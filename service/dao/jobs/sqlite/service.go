package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/viant/jobrunner/model/job"
	"github.com/viant/jobrunner/service/dao"
	"github.com/viant/jobrunner/service/dao/jobs"
	_ "modernc.org/sqlite"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  owner TEXT NOT NULL DEFAULT '',
  spec_id TEXT NOT NULL,
  status TEXT NOT NULL,
  submitted_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  record_json TEXT NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS job_timestamps (
  job_id TEXT NOT NULL,
  seq INTEGER NOT NULL,
  status TEXT NOT NULL,
  at INTEGER NOT NULL,
  message TEXT,
  PRIMARY KEY (job_id, seq)
)`,
}

// Service stores job records in SQLite. Every timestamp is also kept as a
// row of job_timestamps, which takes precedence when a record is loaded.
type Service struct {
	db *sql.DB
}

var _ jobs.Service = (*Service)(nil)

// Open opens or creates the database at dsn.
func Open(ctx context.Context, dsn string) (*Service, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	for _, statement := range schema {
		if _, err = db.ExecContext(ctx, statement); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &Service{db: db}, nil
}

func (s *Service) Close() error { return s.db.Close() }

// Save inserts or replaces a record.
func (s *Service) Save(ctx context.Context, record *job.Record) error {
	return s.save(ctx, s.db, record)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Service) save(ctx context.Context, db execer, record *job.Record) error {
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
	var submitted int64
	if len(record.Timestamps) > 0 {
		submitted = record.Timestamps[0].Time.UnixNano()
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO jobs (id, owner, spec_id, status, submitted_at, updated_at, record_json)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
           owner = excluded.owner,
           spec_id = excluded.spec_id,
           status = excluded.status,
           updated_at = excluded.updated_at,
           record_json = excluded.record_json`,
		record.ID, record.Owner, record.SpecID, string(record.Status()), submitted, time.Now().UnixNano(), string(data),
	)
	if err != nil {
		return fmt.Errorf("executing sql upsert failed: %w", err)
	}
	return nil
}

// OnTimestamp stores the timestamp and the current job snapshot in one transaction.
func (s *Service) OnTimestamp(ctx context.Context, aJob *job.Job, timestamp job.Timestamp) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "rollback failed", "job_id", aJob.ID, "error", err)
		}
	}()
	if err = s.save(ctx, tx, aJob.Record()); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO job_timestamps (job_id, seq, status, at, message)
         VALUES (?, (SELECT COUNT(*) FROM job_timestamps WHERE job_id = ?), ?, ?, ?)`,
		aJob.ID, aJob.ID, string(timestamp.Status), timestamp.Time.UnixNano(), timestamp.Message,
	)
	if err != nil {
		return fmt.Errorf("executing sql insert failed: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction failed: %w", err)
	}
	return nil
}

// OnFinalized stores the final job snapshot.
func (s *Service) OnFinalized(ctx context.Context, aJob *job.Job) error {
	return s.Save(ctx, aJob.Record())
}

// Load returns a record with its timestamp history.
func (s *Service) Load(ctx context.Context, id string) (*job.Record, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record_json FROM jobs WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", id, dao.ErrNotFound)
		}
		return nil, err
	}
	record := &job.Record{}
	if err = json.Unmarshal([]byte(data), record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}
	timestamps, err := s.timestamps(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(timestamps) > 0 {
		record.Timestamps = timestamps
	}
	return record, nil
}

func (s *Service) timestamps(ctx context.Context, id string) ([]job.Timestamp, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, at, message FROM job_timestamps WHERE job_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ret []job.Timestamp
	for rows.Next() {
		var (
			status  string
			at      int64
			message sql.NullString
		)
		if err := rows.Scan(&status, &at, &message); err != nil {
			return nil, err
		}
		ret = append(ret, job.Timestamp{Status: job.Status(status), Time: time.Unix(0, at).UTC(), Message: message.String})
	}
	return ret, rows.Err()
}

// Delete removes a record and its timestamps.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("job %s: %w", id, dao.ErrNotFound)
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM job_timestamps WHERE job_id = ?`, id)
	return err
}

var columns = map[string]string{
	dao.ParameterStatus: "status",
	dao.ParameterOwner:  "owner",
	dao.ParameterSpec:   "spec_id",
}

// List returns records matching the status, owner and spec parameters in submission order.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*job.Record, error) {
	query := `SELECT id FROM jobs`
	var conditions []string
	var args []any
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		column, ok := columns[parameter.Name]
		if !ok {
			continue
		}
		values := parameter.Values()
		if len(values) == 0 {
			continue
		}
		conditions = append(conditions, column+" IN ("+strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")+")")
		for _, value := range values {
			args = append(args, value)
		}
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY submitted_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	records := make([]*job.Record, 0, len(ids))
	for _, id := range ids {
		record, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
