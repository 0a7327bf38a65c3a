package playback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository persists playback executions.
type Repository interface {
	CreateExecution(ctx context.Context, exec *Execution) error
	UpdateExecution(ctx context.Context, exec *Execution) error
	GetExecution(ctx context.Context, id string) (*Execution, error)
	ListExecutions(ctx context.Context, limit int) ([]Execution, error)
}

// executionColumns is the SELECT column list for execution queries.
const executionColumns = `id, robot, source_path, format, audio_path, unit_mode,
			status, stage, joints, clamped, warnings, error,
			duration_ms, started_at, completed_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateExecution inserts a new execution record.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, exec *Execution) error {
	warningsJSON, err := marshalWarnings(exec.Warnings)
	if err != nil {
		return fmt.Errorf("marshalling warnings: %w", err)
	}

	query := `
		INSERT INTO playback_executions (
			id, robot, source_path, format, audio_path, unit_mode,
			status, stage, joints, clamped, warnings, error,
			duration_ms, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		exec.ID,
		exec.Robot,
		exec.SourcePath,
		exec.Format,
		nullableString(exec.AudioPath),
		nullableString(exec.UnitMode),
		string(exec.Status),
		string(exec.Stage),
		exec.Joints,
		exec.Clamped,
		warningsJSON,
		nullableString(exec.Error),
		exec.DurationMS,
		exec.StartedAt.UTC().Format(time.RFC3339),
		nullableTime(exec.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// UpdateExecution updates an existing execution record.
func (r *SQLiteRepository) UpdateExecution(ctx context.Context, exec *Execution) error {
	warningsJSON, err := marshalWarnings(exec.Warnings)
	if err != nil {
		return fmt.Errorf("marshalling warnings: %w", err)
	}

	query := `
		UPDATE playback_executions SET
			format = ?, audio_path = ?, unit_mode = ?,
			status = ?, stage = ?, joints = ?, clamped = ?, warnings = ?, error = ?,
			duration_ms = ?, completed_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		exec.Format,
		nullableString(exec.AudioPath),
		nullableString(exec.UnitMode),
		string(exec.Status),
		string(exec.Stage),
		exec.Joints,
		exec.Clamped,
		warningsJSON,
		nullableString(exec.Error),
		exec.DurationMS,
		nullableTime(exec.CompletedAt),
		exec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrExecutionNotFound
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (*Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM playback_executions WHERE id = ?`

	exec, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExecutionNotFound
		}
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return exec, nil
}

// ListExecutions retrieves the most recent executions, newest first.
// limit is clamped to 1..100 (default 10).
func (r *SQLiteRepository) ListExecutions(ctx context.Context, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := `SELECT ` + executionColumns + `
		FROM playback_executions
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var executions []Execution
	for rows.Next() {
		exec, scanErr := scanExecution(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning execution: %w", scanErr)
		}
		executions = append(executions, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return executions, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(scanner rowScanner) (*Execution, error) {
	var e Execution
	var audioPath, unitMode, warningsJSON, errText, completedAt sql.NullString
	var status, stage, startedAt string

	err := scanner.Scan(
		&e.ID,
		&e.Robot,
		&e.SourcePath,
		&e.Format,
		&audioPath,
		&unitMode,
		&status,
		&stage,
		&e.Joints,
		&e.Clamped,
		&warningsJSON,
		&errText,
		&e.DurationMS,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Status = Status(status)
	e.Stage = Stage(stage)
	e.AudioPath = audioPath.String
	e.UnitMode = unitMode.String
	e.Error = errText.String

	if t, parseErr := time.Parse(time.RFC3339, startedAt); parseErr == nil {
		e.StartedAt = t
	}
	if completedAt.Valid {
		if t, parseErr := time.Parse(time.RFC3339, completedAt.String); parseErr == nil {
			e.CompletedAt = &t
		}
	}

	if warningsJSON.Valid && warningsJSON.String != "" && warningsJSON.String != "null" {
		if jsonErr := json.Unmarshal([]byte(warningsJSON.String), &e.Warnings); jsonErr != nil {
			return nil, fmt.Errorf("unmarshalling warnings: %w", jsonErr)
		}
	}
	return &e, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func marshalWarnings(warnings []string) (*string, error) {
	if len(warnings) == 0 {
		return nil, nil //nolint:nilnil // nil pointer stores SQL NULL
	}
	data, err := json.Marshal(warnings)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
