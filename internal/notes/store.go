// Package notes persists per-user note lists in a single JSON document.
//
// The document is read in full on every operation and rewritten in full on
// every mutation. A Store serializes its own load-mutate-save cycles, so two
// goroutines adding notes at once cannot lose each other's writes.
package notes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrNoNotes is returned by RemoveNote when the user has nothing stored.
	ErrNoNotes = errors.New("notes: nothing to delete")
	// ErrIndexOutOfRange is returned by RemoveNote for an index outside [1, len].
	ErrIndexOutOfRange = errors.New("notes: index out of range")
)

// Document is the on-disk shape: {"users": {"<id>": {"notes": [...]}}}.
type Document struct {
	Users map[string]*UserRecord `json:"users"`
}

type UserRecord struct {
	Notes []string `json:"notes"`
}

func emptyDocument() *Document {
	return &Document{Users: map[string]*UserRecord{}}
}

type Store struct {
	path string
	log  *slog.Logger

	mu sync.Mutex
}

func NewStore(path string, log *slog.Logger) *Store {
	if strings.TrimSpace(path) == "" {
		path = "memory.json"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{path: path, log: log.With("component", "notes")}
}

func (s *Store) Path() string { return s.path }

// Load reads the whole document. A missing file is created empty; a file
// without a usable "users" object is reset and the reset is persisted.
// Errors are storage faults only: an unreadable file or a failed write while
// creating or repairing it.
func (s *Store) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (*Document, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		doc := emptyDocument()
		if errors.Is(err, fs.ErrNotExist) {
			if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
				return doc, fmt.Errorf("notes: create dir: %w", err)
			}
			return doc, s.saveLocked(doc)
		}
		return doc, fmt.Errorf("notes: read: %w", err)
	}

	doc, ok := s.decode(b)
	if !ok {
		s.log.Warn("malformed store, resetting", "path", s.path)
		doc = emptyDocument()
		return doc, s.saveLocked(doc)
	}
	return doc, nil
}

// decode accepts any document whose "users" is a JSON object. A record that
// is not {"notes": [strings]} is replaced by an empty one on its own, so the
// other users keep their notes.
func (s *Store) decode(b []byte) (*Document, bool) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		return nil, false
	}
	raw, ok := top["users"]
	if !ok {
		return nil, false
	}
	var users map[string]json.RawMessage
	if err := json.Unmarshal(raw, &users); err != nil || users == nil {
		return nil, false
	}
	doc := emptyDocument()
	for id, rawRec := range users {
		var rec UserRecord
		if err := json.Unmarshal(rawRec, &rec); err != nil {
			s.log.Warn("malformed user record, resetting it", "path", s.path, "user", id, "err", err)
			rec = UserRecord{}
		}
		if rec.Notes == nil {
			rec.Notes = []string{}
		}
		doc.Users[id] = &rec
	}
	return doc, true
}

// Save overwrites the store with doc.
func (s *Store) Save(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(doc)
}

func (s *Store) saveLocked(doc *Document) error {
	if doc == nil {
		doc = emptyDocument()
	}
	if doc.Users == nil {
		doc.Users = map[string]*UserRecord{}
	}
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("notes: encode: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("notes: write: %w", err)
	}
	tmp := f.Name()
	_, werr := f.Write(b)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("notes: write: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("notes: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("notes: write: %w", err)
	}
	return nil
}

// UserKey normalizes a platform user id to its document key.
func UserKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// GetOrCreateUserNotes returns the record for userID, installing an empty one
// on first access. The returned record is live: mutate it, then Save doc.
func GetOrCreateUserNotes(doc *Document, userID string) *UserRecord {
	userID = strings.TrimSpace(userID)
	if doc.Users == nil {
		doc.Users = map[string]*UserRecord{}
	}
	rec := doc.Users[userID]
	if rec == nil {
		rec = &UserRecord{Notes: []string{}}
		doc.Users[userID] = rec
	}
	if rec.Notes == nil {
		rec.Notes = []string{}
	}
	return rec
}

func (s *Store) AddNote(userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return err
	}
	rec := GetOrCreateUserNotes(doc, userID)
	rec.Notes = append(rec.Notes, text)
	return s.saveLocked(doc)
}

// RemoveNote deletes the note at the 1-based index and returns its text.
func (s *Store) RemoveNote(userID string, index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return "", err
	}
	rec := GetOrCreateUserNotes(doc, userID)
	if len(rec.Notes) == 0 {
		return "", ErrNoNotes
	}
	if index < 1 || index > len(rec.Notes) {
		return "", fmt.Errorf("%w: %d not in 1..%d", ErrIndexOutOfRange, index, len(rec.Notes))
	}
	removed := rec.Notes[index-1]
	rec.Notes = append(rec.Notes[:index-1], rec.Notes[index:]...)
	if err := s.saveLocked(doc); err != nil {
		return "", err
	}
	return removed, nil
}

// ListNotes returns a copy of the user's notes in insertion order.
func (s *Store) ListNotes(userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	rec := doc.Users[strings.TrimSpace(userID)]
	if rec == nil {
		return nil, nil
	}
	return append([]string(nil), rec.Notes...), nil
}
