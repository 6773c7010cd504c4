package nauta

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

const storeFileMode = 0600

// SessionStore persists a Session as two files in one directory: the JSON
// record and a Netscape cookie file. The record's presence is what marks
// a session as open.
type SessionStore struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewSessionStore returns a store writing to dir on fs.
func NewSessionStore(fs afero.Fs, dir string) *SessionStore {
	return &SessionStore{fs: fs, dir: dir, now: time.Now}
}

// NewOsSessionStore returns a store on the real filesystem.
func NewOsSessionStore(dir string) *SessionStore {
	return NewSessionStore(afero.NewOsFs(), dir)
}

// RecordPath is the path of the JSON session record.
func (st *SessionStore) RecordPath() string {
	return filepath.Join(st.dir, SessionFileName)
}

// CookiePath is the path of the session's cookie file.
func (st *SessionStore) CookiePath() string {
	return filepath.Join(st.dir, CookieFileName)
}

// Save writes the cookie jar and then the record, replacing any previous
// session. Each file is written to a temporary name and renamed into place
// so readers never see a partial file.
func (st *SessionStore) Save(s *Session) error {
	if err := st.fs.MkdirAll(st.dir, 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := st.saveJar(s.Jar()); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := st.writeAtomic(st.RecordPath(), data); err != nil {
		return fmt.Errorf("write session record: %w", err)
	}
	return nil
}

func (st *SessionStore) saveJar(j *Jar) error {
	var buf bytes.Buffer
	if err := WriteCookieFile(&buf, j.All()); err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}
	if err := st.writeAtomic(st.CookiePath(), buf.Bytes()); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	return nil
}

// Load rebuilds the saved session, cookies included. It returns
// ErrSessionNotFound when no record exists. A missing cookie file yields an
// empty jar.
func (st *SessionStore) Load() (*Session, error) {
	data, err := afero.ReadFile(st.fs, st.RecordPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("read session record: %w", err)
	}
	s := NewSession()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}

	f, err := st.fs.Open(st.CookiePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("open cookie file: %w", err)
	}
	defer f.Close()
	cookies, err := ParseCookieFile(f, st.now())
	if err != nil {
		return nil, err
	}
	s.Jar().Restore(cookies)
	return s, nil
}

// Exists reports whether a session record is on disk.
func (st *SessionStore) Exists() bool {
	_, err := st.fs.Stat(st.RecordPath())
	return err == nil
}

// Dispose clears the session's cookies, persists the empty jar and removes
// the record. s may be nil. Disposing twice is not an error.
func (st *SessionStore) Dispose(s *Session) error {
	j := NewJar()
	if s != nil {
		j = s.Jar()
		j.Clear()
	}
	if err := st.fs.MkdirAll(st.dir, 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := st.saveJar(j); err != nil {
		return err
	}
	if err := st.fs.Remove(st.RecordPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session record: %w", err)
	}
	return nil
}

func (st *SessionStore) writeAtomic(path string, data []byte) error {
	tmp, err := afero.TempFile(st.fs, filepath.Dir(path), "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		st.fs.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		st.fs.Remove(tmpPath)
		return err
	}
	if err := st.fs.Chmod(tmpPath, storeFileMode); err != nil {
		st.fs.Remove(tmpPath)
		return err
	}
	if err := st.fs.Rename(tmpPath, path); err != nil {
		st.fs.Remove(tmpPath)
		return err
	}
	return nil
}
