package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"hexempire/internal/chain"
)

// ErrDuplicate is returned when an event id is already stored.
var ErrDuplicate = errors.New("relay: event already stored")

// Storage persists events in SQLite. Events are immutable once stored;
// there is no update path.
type Storage struct {
	db  *sqlx.DB
	log logrus.FieldLogger
}

// OpenStorage opens or creates the database at path. ":memory:" works
// for tests.
func OpenStorage(path string, logger logrus.FieldLogger) (*Storage, error) {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("relay: open db: %w", err)
	}
	s := &Storage{db: db, log: logger.WithField("component", "relay-storage")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("relay: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		author TEXT NOT NULL,
		kind INTEGER NOT NULL,
		turn INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		tags_json TEXT NOT NULL,
		body_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_game ON events(game_id, turn, seq);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores one signed event. Duplicate ids yield ErrDuplicate.
func (s *Storage) Save(ev *chain.GameEvent) error {
	if ev.ID == "" {
		return fmt.Errorf("relay: refusing to store unsigned event")
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("relay: marshal event: %w", err)
	}
	tags, err := json.Marshal(ev.Tags())
	if err != nil {
		return fmt.Errorf("relay: marshal tags: %w", err)
	}

	res, err := s.db.Exec(`INSERT OR IGNORE INTO events
		(id, game_id, author, kind, turn, seq, created_at, tags_json, body_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.GameID, ev.PlayerID, ev.Kind(), ev.Turn, ev.Sequence,
		ev.Timestamp, string(tags), string(body))
	if err != nil {
		return fmt.Errorf("relay: insert event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("relay: insert event: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}
	s.log.WithFields(logrus.Fields{"event": ev.ID, "game": ev.GameID, "kind": ev.Kind()}).
		Debug("event stored")
	return nil
}

// Query returns stored events passing the filter, ordered by creation
// time then chain order. Tag constraints are applied after the SQL scan.
func (s *Storage) Query(f Filter) ([]*chain.GameEvent, error) {
	var clauses []string
	var args []interface{}

	if len(f.IDs) > 0 {
		clauses = append(clauses, "id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if len(f.Authors) > 0 {
		clauses = append(clauses, "author IN ("+placeholders(len(f.Authors))+")")
		for _, a := range f.Authors {
			args = append(args, a)
		}
	}
	if len(f.Kinds) > 0 {
		clauses = append(clauses, "kind IN ("+placeholders(len(f.Kinds))+")")
		for _, k := range f.Kinds {
			args = append(args, k)
		}
	}
	if f.GameID != "" {
		clauses = append(clauses, "game_id = ?")
		args = append(args, f.GameID)
	}
	if f.Since > 0 {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since)
	}
	if f.Until > 0 {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.Until)
	}

	query := "SELECT body_json FROM events"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at, turn, seq"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("relay: query events: %w", err)
	}
	defer rows.Close()

	var out []*chain.GameEvent
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("relay: scan event: %w", err)
		}
		var ev chain.GameEvent
		if err := json.Unmarshal([]byte(body), &ev); err != nil {
			return nil, fmt.Errorf("relay: decode event: %w", err)
		}
		if len(f.Tags) > 0 && !f.Matches(&ev) {
			continue
		}
		out = append(out, &ev)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, rows.Err()
}

// CountForGame returns how many events a game has stored.
func (s *Storage) CountForGame(gameID string) (int, error) {
	var n int
	err := s.db.Get(&n, "SELECT COUNT(*) FROM events WHERE game_id = ?", gameID)
	return n, err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
