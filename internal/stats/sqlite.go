package stats

import (
    "context"
    "database/sql"
    "fmt"
    "os"
    "path/filepath"
    "time"

    "github.com/jaminalder/ttt-engine/internal/domain"
    _ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS results (
    game_id     TEXT    NOT NULL,
    round       INTEGER NOT NULL,
    mode        TEXT    NOT NULL,
    outcome     TEXT    NOT NULL,
    winner      TEXT    NOT NULL DEFAULT '',
    ai_side     TEXT    NOT NULL DEFAULT '',
    ai_won      INTEGER NOT NULL DEFAULT 0,
    human_won   INTEGER NOT NULL DEFAULT 0,
    moves       INTEGER NOT NULL,
    finished_at TEXT    NOT NULL,
    PRIMARY KEY (game_id, round)
);`

// SQLite is a Recorder backed by a SQLite file.
type SQLite struct {
    db *sql.DB
}

// OpenSQLite opens (and creates if missing) the database at path and applies
// the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
    dir := filepath.Dir(path)
    if dir != "." && dir != "" {
        if err := os.MkdirAll(dir, 0o755); err != nil {
            return nil, fmt.Errorf("mkdir %s: %w", dir, err)
        }
    }
    db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
    if err != nil {
        return nil, err
    }
    if _, err := db.ExecContext(ctx, schema); err != nil {
        _ = db.Close()
        return nil, fmt.Errorf("apply schema: %w", err)
    }
    return &SQLite{db: db}, nil
}

func (s *SQLite) Record(ctx context.Context, r Result) error {
    if r.Outcome.Kind == domain.InProgress {
        return ErrNotFinished
    }
    finished := r.Finished
    if finished.IsZero() {
        finished = time.Now()
    }
    _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO results
        (game_id, round, mode, outcome, winner, ai_side, ai_won, human_won, moves, finished_at)
        VALUES (?,?,?,?,?,?,?,?,?,?)`,
        r.GameID, r.Round, r.Mode, r.Outcome.Kind.String(), r.Outcome.Winner.String(),
        r.AISide.String(), boolInt(r.AIWon()), boolInt(r.HumanWon()), r.Moves,
        finished.UTC().Format(time.RFC3339))
    if err != nil {
        return fmt.Errorf("insert result: %w", err)
    }
    return nil
}

func (s *SQLite) Totals(ctx context.Context) (Totals, error) {
    var t Totals
    row := s.db.QueryRowContext(ctx, `SELECT
        COUNT(*),
        COALESCE(SUM(CASE WHEN outcome='win' AND winner='X' THEN 1 ELSE 0 END),0),
        COALESCE(SUM(CASE WHEN outcome='win' AND winner='O' THEN 1 ELSE 0 END),0),
        COALESCE(SUM(CASE WHEN outcome='draw' THEN 1 ELSE 0 END),0),
        COALESCE(SUM(ai_won),0),
        COALESCE(SUM(human_won),0)
        FROM results`)
    if err := row.Scan(&t.Games, &t.XWins, &t.OWins, &t.Draws, &t.AIWins, &t.HumanWins); err != nil {
        return Totals{}, fmt.Errorf("query totals: %w", err)
    }
    return t, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func boolInt(b bool) int {
    if b {
        return 1
    }
    return 0
}
