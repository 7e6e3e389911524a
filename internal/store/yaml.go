package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"fjacquet/finance-ledger/internal/fileutils"
	"fjacquet/finance-ledger/internal/models"

	"gopkg.in/yaml.v3"
)

var collectionName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// YAMLStore keeps each collection in <dir>/<collection>.yaml as an ordered
// list of records. Every operation re-reads the file, so several processes
// sharing a directory see each other's writes; writes go through a temp file
// and rename. It does not implement Incrementer.
type YAMLStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewYAMLStore creates the data directory if needed.
func NewYAMLStore(dir string) (*YAMLStore, error) {
	if dir == "" {
		dir = "database"
	}
	if err := fileutils.EnsureDirectoryExists(dir); err != nil {
		return nil, fmt.Errorf("error creating data directory: %w", err)
	}
	return &YAMLStore{dir: dir, now: time.Now}, nil
}

// Dir returns the data directory.
func (s *YAMLStore) Dir() string {
	return s.dir
}

func (s *YAMLStore) path(collection string) (string, error) {
	if !collectionName.MatchString(collection) {
		return "", fmt.Errorf("invalid collection name: %q", collection)
	}
	return filepath.Join(s.dir, collection+".yaml"), nil
}

func (s *YAMLStore) load(collection string) ([]Record, error) {
	path, err := s.path(collection)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path built from a validated collection name
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	var records []Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	for _, rec := range records {
		rec.Plain()
	}
	return records, nil
}

func (s *YAMLStore) save(collection string, records []Record) error {
	path, err := s.path(collection)
	if err != nil {
		return err
	}
	if records == nil {
		records = []Record{}
	}
	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("error marshaling %s: %w", collection, err)
	}
	if err := fileutils.WriteFileAtomic(path, data, models.PermissionDataFile); err != nil {
		return fmt.Errorf("error saving %s: %w", collection, err)
	}
	return nil
}

func indexOf(records []Record, id string) int {
	for i, rec := range records {
		if rec.ID() == id {
			return i
		}
	}
	return -1
}

func (s *YAMLStore) FetchOne(_ context.Context, collection, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(collection)
	if err != nil {
		return nil, err
	}
	i := indexOf(records, id)
	if i < 0 {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return records[i], nil
}

func (s *YAMLStore) Insert(_ context.Context, collection string, rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(collection)
	if err != nil {
		return "", err
	}
	stored, id := PrepareInsert(rec, s.now())
	if indexOf(records, id) >= 0 {
		return "", fmt.Errorf("%s/%s: %w", collection, id, ErrDuplicate)
	}
	if err := s.save(collection, append(records, stored)); err != nil {
		return "", err
	}
	return id, nil
}

func (s *YAMLStore) Update(_ context.Context, collection, id string, fields Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(collection)
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	ApplyUpdate(records[i], fields, s.now())
	return s.save(collection, records)
}

func (s *YAMLStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(collection)
	if err != nil {
		return err
	}
	i := indexOf(records, id)
	if i < 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return s.save(collection, append(records[:i], records[i+1:]...))
}

func (s *YAMLStore) List(_ context.Context, collection string, filter Filter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(collection)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, rec := range records {
		if rec.Matches(filter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Close is a no-op; nothing is held open between operations.
func (s *YAMLStore) Close() error {
	return nil
}
