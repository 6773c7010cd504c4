// Package history records when each account logged in and out, in a
// SQLite database next to the session files.
package history

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the database file inside the config directory.
const FileName = "connections.db"

const schema = `CREATE TABLE IF NOT EXISTS connections (
	user TEXT,
	fecha_inicio_sesion DATETIME,
	fecha_cierre_sesion DATETIME
)`

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02 15:04:05.000000"

// Entry is one connection. End is nil while the connection is open or
// when its logout was never recorded.
type Entry struct {
	User  string
	Start time.Time
	End   *time.Time
}

// Duration returns the connection length, zero while it is open.
func (e Entry) Duration() time.Duration {
	if e.End == nil {
		return 0
	}
	return e.End.Sub(e.Start)
}

// Store is the connections database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens, creating if needed, the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open connections database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create connections table: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// RecordLoginStart opens a new entry for user.
func (s *Store) RecordLoginStart(user string) error {
	_, err := s.db.Exec(
		"INSERT INTO connections (user, fecha_inicio_sesion) VALUES (?, ?)",
		user, s.now().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

// RecordLogoutEnd closes the most recent entry of user if it is still
// open. Older open entries, left by crashed runs, are not touched.
func (s *Store) RecordLogoutEnd(user string) error {
	_, err := s.db.Exec(`
		UPDATE connections
		SET fecha_cierre_sesion = ?
		WHERE user = ? AND fecha_cierre_sesion IS NULL
		AND fecha_inicio_sesion = (
			SELECT MAX(fecha_inicio_sesion) FROM connections WHERE user = ?
		)`,
		s.now().Format(timeLayout), user, user,
	)
	if err != nil {
		return fmt.Errorf("record logout: %w", err)
	}
	return nil
}

// List returns every entry ordered by start time.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT user, fecha_inicio_sesion, fecha_cierre_sesion
		FROM connections
		ORDER BY fecha_inicio_sesion`)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			start, end any
		)
		if err := rows.Scan(&e.User, &start, &end); err != nil {
			return nil, err
		}
		st, err := scanTime(start)
		if err != nil {
			return nil, err
		}
		if st == nil {
			return nil, fmt.Errorf("connection of %s has no start time", e.User)
		}
		e.Start = *st
		if e.End, err = scanTime(end); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// scanTime converts a stored timestamp. Timestamps are local wall-clock
// times without zone; the driver hands DATETIME columns back as UTC, so
// their wall clock is reinterpreted in the local zone.
func scanTime(v any) (*time.Time, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t := time.Date(v.Year(), v.Month(), v.Day(), v.Hour(), v.Minute(), v.Second(), v.Nanosecond(), time.Local)
		return &t, nil
	case []byte:
		return scanTime(string(v))
	case string:
		if v == "" {
			return nil, nil
		}
		t, err := parseTime(v)
		if err != nil {
			return nil, err
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("unexpected timestamp type %T", v)
	}
}

// parseTime accepts the stored layout and the ISO forms other tools write.
func parseTime(v string) (time.Time, error) {
	for _, layout := range []string{timeLayout, "2006-01-02 15:04:05.999999", "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
}

// MonthlyUsage is the time one user spent connected in one month.
type MonthlyUsage struct {
	User        string
	Month       time.Month
	Year        int
	Total       time.Duration
	Connections int
}

// MonthlySummary totals closed connections per user and calendar month of
// their start. Open entries are left out.
func MonthlySummary(entries []Entry) []MonthlyUsage {
	type key struct {
		user  string
		year  int
		month time.Month
	}
	totals := map[key]*MonthlyUsage{}
	for _, e := range entries {
		if e.End == nil {
			continue
		}
		k := key{e.User, e.Start.Year(), e.Start.Month()}
		u, ok := totals[k]
		if !ok {
			u = &MonthlyUsage{User: e.User, Year: k.year, Month: k.month}
			totals[k] = u
		}
		u.Total += e.Duration()
		u.Connections++
	}

	out := make([]MonthlyUsage, 0, len(totals))
	for _, u := range totals {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].User < out[j].User
	})
	return out
}

func (s *Store) Close() error {
	return s.db.Close()
}
