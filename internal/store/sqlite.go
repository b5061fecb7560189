package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"hintgen/internal/pyast"
)

// SQLite persists states in a single sqlite table. Trees are stored as msgpack
// blobs, ids as their text form.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path. ":memory:" keeps it in
// process.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite store needs a path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// sqlite serializes writers; one connection also keeps ":memory:" a single database
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db, path: path}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize store schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) initSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS states (
		id TEXT PRIMARY KEY,
		problem TEXT NOT NULL,
		code TEXT NOT NULL,
		tree BLOB,
		score REAL NOT NULL DEFAULT 0,
		feedback TEXT NOT NULL DEFAULT '',
		count INTEGER NOT NULL DEFAULT 0,
		goal_id TEXT NOT NULL DEFAULT '',
		next_id TEXT NOT NULL DEFAULT '',
		goal_dist REAL NOT NULL DEFAULT 0,
		UNIQUE(problem, code)
	);
	CREATE INDEX IF NOT EXISTS idx_states_problem_score ON states(problem, score);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error { return s.db.Close() }

const stateColumns = `id, problem, code, tree, score, feedback, count, goal_id, next_id, goal_dist`

func (s *SQLite) FindByCode(ctx context.Context, problem, code string) (*State, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM states WHERE problem = ? AND code = ?`, problem, code)
	return scanState(row)
}

func (s *SQLite) Get(ctx context.Context, id uuid.UUID) (*State, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+stateColumns+` FROM states WHERE id = ?`, id.String())
	return scanState(row)
}

func (s *SQLite) Save(ctx context.Context, st *State) error {
	var blob []byte
	if st.Tree != nil {
		b, err := pyast.MarshalTree(st.Tree)
		if err != nil {
			return fmt.Errorf("save %s: %w", st.Problem, err)
		}
		blob = b
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM states WHERE problem = ? AND code = ?`,
		st.Problem, st.Code).Scan(&existing)
	switch {
	case err == nil:
		id, perr := uuid.Parse(existing)
		if perr != nil {
			return fmt.Errorf("stored id %q: %w", existing, perr)
		}
		st.ID = id
	case errors.Is(err, sql.ErrNoRows):
		if st.ID == uuid.Nil {
			st.ID = uuid.New()
		}
	default:
		return err
	}

	// count is left alone on update; Increment owns it
	err = tx.QueryRowContext(ctx, `
		INSERT INTO states (`+stateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			problem = excluded.problem,
			code = excluded.code,
			tree = excluded.tree,
			score = excluded.score,
			feedback = excluded.feedback,
			goal_id = excluded.goal_id,
			next_id = excluded.next_id,
			goal_dist = excluded.goal_dist
		RETURNING count`,
		st.ID.String(), st.Problem, st.Code, blob, st.Score, st.Feedback, st.Count,
		idText(st.GoalID), idText(st.NextID), st.GoalDist).Scan(&st.Count)
	if err != nil {
		return fmt.Errorf("save %s: %w", st.ID, err)
	}
	return tx.Commit()
}

func (s *SQLite) Increment(ctx context.Context, id uuid.UUID, n int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`UPDATE states SET count = count + ? WHERE id = ? RETURNING count`, n, id.String()).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", id, err)
	}
	return count, nil
}

func (s *SQLite) Goals(ctx context.Context, problem string) ([]*State, error) {
	return s.query(ctx, `SELECT `+stateColumns+` FROM states WHERE problem = ? AND score >= 1 ORDER BY rowid`, problem)
}

func (s *SQLite) States(ctx context.Context, problem string) ([]*State, error) {
	return s.query(ctx, `SELECT `+stateColumns+` FROM states WHERE problem = ? ORDER BY rowid`, problem)
}

func (s *SQLite) query(ctx context.Context, q string, args ...any) ([]*State, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*State
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanState(r scanner) (*State, error) {
	var (
		st                 State
		id, goalID, nextID string
		blob               []byte
	)
	err := r.Scan(&id, &st.Problem, &st.Code, &blob, &st.Score, &st.Feedback, &st.Count,
		&goalID, &nextID, &st.GoalDist)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if st.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("stored id %q: %w", id, err)
	}
	if st.GoalID, err = parseID(goalID); err != nil {
		return nil, err
	}
	if st.NextID, err = parseID(nextID); err != nil {
		return nil, err
	}
	if len(blob) > 0 {
		if st.Tree, err = pyast.UnmarshalTree(blob); err != nil {
			return nil, fmt.Errorf("state %s: %w", id, err)
		}
	}
	return &st, nil
}

func idText(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func parseID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("stored id %q: %w", s, err)
	}
	return id, nil
}
