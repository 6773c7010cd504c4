// Package credman stores Nauta accounts in a small SQLite database with
// passwords encrypted by a key kept outside the database.
package credman

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nautacli/nauta/pkg/credman/encryption"
	"github.com/nautacli/nauta/pkg/credman/types"
	_ "modernc.org/sqlite"
)

// UsersFileName is the database file inside the config directory.
const UsersFileName = "users.db"

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrNoUser       = errors.New("no user given and no stored user")
	ErrEmptyName    = errors.New("user name cannot be empty")
)

var schema = []string{
	"CREATE TABLE IF NOT EXISTS users (user TEXT PRIMARY KEY, password TEXT NOT NULL)",
	"CREATE TABLE IF NOT EXISTS default_user (user TEXT)",
}

// Manager gives access to the stored accounts.
type Manager struct {
	db  *sql.DB
	key []byte
}

// NewManager opens, creating if needed, the users database at path.
// key is the 32-byte password encryption key.
func NewManager(path string, key []byte) (*Manager, error) {
	if len(key) != encryption.KeySize {
		return nil, encryption.ErrInvalidKey
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open users database: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create users tables: %w", err)
		}
	}
	return &Manager{db: db, key: key}, nil
}

// Add stores a new account.
func (m *Manager) Add(name, password string) error {
	if name == "" {
		return ErrEmptyName
	}
	if ok, err := m.exists(name); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrUserExists, name)
	}
	enc, err := encryption.EncryptString(password, m.key)
	if err != nil {
		return err
	}
	if _, err := m.db.Exec("INSERT INTO users (user, password) VALUES (?, ?)", name, enc); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// SetPassword replaces the password of an existing account.
func (m *Manager) SetPassword(name, password string) error {
	enc, err := encryption.EncryptString(password, m.key)
	if err != nil {
		return err
	}
	res, err := m.db.Exec("UPDATE users SET password = ? WHERE user = ?", enc, name)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return affectedOne(res, name)
}

// SetDefault marks an existing account as the default one.
func (m *Manager) SetDefault(name string) error {
	if ok, err := m.exists(name); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM default_user"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO default_user (user) VALUES (?)", name); err != nil {
		return err
	}
	return tx.Commit()
}

// Remove deletes an account; it stops being the default if it was.
func (m *Manager) Remove(name string) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.Exec("DELETE FROM users WHERE user = ?", name)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := affectedOne(res, name); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM default_user WHERE user = ?", name); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns the stored accounts in insertion order, passwords left empty.
func (m *Manager) List() ([]types.User, error) {
	def, err := m.Default()
	if err != nil {
		return nil, err
	}
	rows, err := m.db.Query("SELECT user FROM users ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.Name); err != nil {
			return nil, err
		}
		u.Default = u.Name == def
		users = append(users, u)
	}
	return users, rows.Err()
}

// Default returns the explicit default account, else the first stored
// one, else "".
func (m *Manager) Default() (string, error) {
	var name string
	err := m.db.QueryRow("SELECT user FROM default_user LIMIT 1").Scan(&name)
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	err = m.db.QueryRow("SELECT user FROM users ORDER BY rowid LIMIT 1").Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return name, err
}

// Find returns the first account whose name starts with prefix, so
// "alice" finds "alice@nauta.com.cu". When none matches, prefix and
// fallbackPassword are returned as they are.
func (m *Manager) Find(prefix, fallbackPassword string) (types.User, error) {
	var name, enc string
	err := m.db.QueryRow(
		`SELECT user, password FROM users WHERE user LIKE ? ESCAPE '\' ORDER BY rowid LIMIT 1`,
		escapeLike(prefix)+"%",
	).Scan(&name, &enc)
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{Name: prefix, Password: fallbackPassword}, nil
	}
	if err != nil {
		return types.User{}, fmt.Errorf("find user: %w", err)
	}
	password, err := encryption.DecryptString(enc, m.key)
	if err != nil {
		return types.User{}, fmt.Errorf("decrypt password of %s: %w", name, err)
	}
	return types.User{Name: name, Password: password}, nil
}

// Credentials resolves the account to use: the named one, or the default
// when name is empty. password, when given, overrides the stored one.
func (m *Manager) Credentials(name, password string) (types.User, error) {
	if name == "" {
		def, err := m.Default()
		if err != nil {
			return types.User{}, err
		}
		if def == "" {
			return types.User{}, ErrNoUser
		}
		name = def
	}
	u, err := m.Find(name, password)
	if err != nil {
		return types.User{}, err
	}
	if password != "" {
		u.Password = password
	}
	return u, nil
}

func (m *Manager) Close() error {
	return m.db.Close()
}

func (m *Manager) exists(name string) (bool, error) {
	var n int
	if err := m.db.QueryRow("SELECT count(*) FROM users WHERE user = ?", name).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func affectedOne(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
