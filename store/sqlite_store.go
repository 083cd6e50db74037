package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/josephgoksu/AgentWing/models"
	"github.com/josephgoksu/AgentWing/types"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	instruction  TEXT NOT NULL,
	priority     INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL,
	compare_id   TEXT,
	result       TEXT,
	error        TEXT,
	options      TEXT,
	context      TEXT,
	retry        TEXT,
	progress     TEXT,
	session_id   TEXT,
	created_at   TIMESTAMP NOT NULL,
	started_at   TIMESTAMP,
	completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

// SQLiteStore implements TaskRepository on a SQLite database via the pure-Go
// modernc driver. Structured columns (options, error, progress) are stored
// as JSON.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path and
// applies the schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// The modernc driver is not safe for concurrent writers on one file.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(task models.Task) error {
	opts, err := json.Marshal(task.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	var ctxJSON, errJSON, retryJSON []byte
	if task.Context != nil {
		if ctxJSON, err = json.Marshal(task.Context); err != nil {
			return fmt.Errorf("encode context: %w", err)
		}
	}
	if task.Error != nil {
		if errJSON, err = json.Marshal(task.Error); err != nil {
			return fmt.Errorf("encode error: %w", err)
		}
	}
	if task.Retry != nil {
		if retryJSON, err = json.Marshal(task.Retry); err != nil {
			return fmt.Errorf("encode retry: %w", err)
		}
	}

	_, err = s.db.Exec(`
		INSERT INTO tasks (id, instruction, priority, status, compare_id, result, error, options, context, retry, session_id, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			instruction = excluded.instruction,
			priority = excluded.priority,
			status = excluded.status,
			compare_id = excluded.compare_id,
			result = excluded.result,
			error = excluded.error,
			options = excluded.options,
			context = excluded.context,
			retry = excluded.retry,
			session_id = excluded.session_id,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at`,
		task.ID, task.Instruction, task.Priority, string(task.Status), task.CompareID,
		task.Result, nullableStr(errJSON), string(opts), nullableStr(ctxJSON), nullableStr(retryJSON),
		task.SessionID, task.CreatedAt, task.StartedAt, task.CompletedAt)
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateStatus(id string, status models.TaskStatus, taskErr error) error {
	var errJSON any
	if taskErr != nil {
		b, err := json.Marshal(types.WrapError(types.CodeBackendExecution, taskErr))
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}
		errJSON = string(b)
	}
	res, err := s.db.Exec(`UPDATE tasks SET status = ?, error = COALESCE(?, error) WHERE id = ?`,
		string(status), errJSON, id)
	if err != nil {
		return fmt.Errorf("update status %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) UpdateResult(id string, result string) error {
	res, err := s.db.Exec(`UPDATE tasks SET result = ? WHERE id = ?`, result, id)
	if err != nil {
		return fmt.Errorf("update result %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) UpdateProgressData(id string, data *models.ProgressData) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	res, err := s.db.Exec(`UPDATE tasks SET progress = ? WHERE id = ?`, string(b), id)
	if err != nil {
		return fmt.Errorf("update progress %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) GetTask(id string) (models.Task, error) {
	row := s.db.QueryRow(`SELECT id, instruction, priority, status, compare_id, result, error, options, context, retry, session_id, created_at, started_at, completed_at FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("get task %s: %w", id, ErrTaskNotFound)
	}
	return t, err
}

func (s *SQLiteStore) ListTasks(filterFn func(models.Task) bool) ([]models.Task, error) {
	rows, err := s.db.Query(`SELECT id, instruction, priority, status, compare_id, result, error, options, context, retry, session_id, created_at, started_at, completed_at FROM tasks ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		if filterFn == nil || filterFn(t) {
			out = append(out, t)
		}
	}
	return out, rows.Err()
}

func (s *SQLiteStore) FindPending() ([]models.Task, error) {
	return s.ListTasks(func(t models.Task) bool { return t.Status == models.StatusPending })
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t                            models.Task
		status                       string
		compareID, result, sessionID sql.NullString
		errJSON, opts, ctxJSON       sql.NullString
		retryJSON                    sql.NullString
		createdAt                    time.Time
		startedAt, completedAt       sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Instruction, &t.Priority, &status, &compareID, &result,
		&errJSON, &opts, &ctxJSON, &retryJSON, &sessionID, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return models.Task{}, err
	}

	t.Status = models.TaskStatus(status)
	t.CompareID = compareID.String
	t.Result = result.String
	t.SessionID = sessionID.String
	t.CreatedAt = createdAt
	if startedAt.Valid {
		t.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	if opts.Valid && opts.String != "" {
		if err := json.Unmarshal([]byte(opts.String), &t.Options); err != nil {
			return models.Task{}, fmt.Errorf("decode options for %s: %w", t.ID, err)
		}
	}
	if ctxJSON.Valid && ctxJSON.String != "" {
		t.Context = &models.TaskContext{}
		if err := json.Unmarshal([]byte(ctxJSON.String), t.Context); err != nil {
			return models.Task{}, fmt.Errorf("decode context for %s: %w", t.ID, err)
		}
	}
	if errJSON.Valid && errJSON.String != "" {
		t.Error = &types.TaskError{}
		if err := json.Unmarshal([]byte(errJSON.String), t.Error); err != nil {
			return models.Task{}, fmt.Errorf("decode error for %s: %w", t.ID, err)
		}
	}
	if retryJSON.Valid && retryJSON.String != "" {
		t.Retry = &models.RetryMetadata{}
		if err := json.Unmarshal([]byte(retryJSON.String), t.Retry); err != nil {
			return models.Task{}, fmt.Errorf("decode retry for %s: %w", t.ID, err)
		}
	}
	return t, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	return nil
}

func nullableStr(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
