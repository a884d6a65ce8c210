package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// Store is a small typed key-value store for launcher preferences.
type Store interface {
	GetString(key, def string) string
	PutString(key, value string) error
	GetInt(key string, def int) int
	PutInt(key string, value int) error
	GetBool(key string, def bool) bool
	PutBool(key string, value bool) error
	ClearAll() error
}

type values struct {
	Strings map[string]string `toml:"strings"`
	Ints    map[string]int    `toml:"ints"`
	Bools   map[string]bool   `toml:"bools"`
}

func newValues() values {
	return values{
		Strings: map[string]string{},
		Ints:    map[string]int{},
		Bools:   map[string]bool{},
	}
}

// MemoryStore keeps preferences in memory.
type MemoryStore struct {
	mu sync.RWMutex
	v  values
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{v: newValues()}
}

func (m *MemoryStore) GetString(key, def string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.v.Strings[key]; ok {
		return s
	}
	return def
}

func (m *MemoryStore) PutString(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v.Strings[key] = value
	return nil
}

func (m *MemoryStore) GetInt(key string, def int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n, ok := m.v.Ints[key]; ok {
		return n
	}
	return def
}

func (m *MemoryStore) PutInt(key string, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v.Ints[key] = value
	return nil
}

func (m *MemoryStore) GetBool(key string, def bool) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.v.Bools[key]; ok {
		return b
	}
	return def
}

func (m *MemoryStore) PutBool(key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v.Bools[key] = value
	return nil
}

func (m *MemoryStore) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v = newValues()
	return nil
}

// FileStore is a MemoryStore flushed to a TOML file after every write.
type FileStore struct {
	mem  *MemoryStore
	path string
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

// OpenFileStore loads the store at path. A missing file is an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{mem: NewMemoryStore(), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	v := newValues()
	if err := toml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	// Tables absent from the file decode to nil maps.
	if v.Strings == nil {
		v.Strings = map[string]string{}
	}
	if v.Ints == nil {
		v.Ints = map[string]int{}
	}
	if v.Bools == nil {
		v.Bools = map[string]bool{}
	}
	fs.mem.v = v
	return fs, nil
}

// Path returns the file backing the store.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) GetString(key, def string) string     { return f.mem.GetString(key, def) }
func (f *FileStore) GetInt(key string, def int) int       { return f.mem.GetInt(key, def) }
func (f *FileStore) GetBool(key string, def bool) bool    { return f.mem.GetBool(key, def) }
func (f *FileStore) PutString(key, value string) error    { return f.write(func() { f.mem.PutString(key, value) }) }
func (f *FileStore) PutInt(key string, value int) error   { return f.write(func() { f.mem.PutInt(key, value) }) }
func (f *FileStore) PutBool(key string, value bool) error { return f.write(func() { f.mem.PutBool(key, value) }) }
func (f *FileStore) ClearAll() error                      { return f.write(func() { f.mem.ClearAll() }) }

func (f *FileStore) write(apply func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	apply()
	return f.flush()
}

func (f *FileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*.toml")
	if err != nil {
		return fmt.Errorf("creating session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	f.mem.mu.RLock()
	err = toml.NewEncoder(tmp).Encode(f.mem.v)
	f.mem.mu.RUnlock()
	if err != nil {
		tmp.Close()
		return fmt.Errorf("encoding session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing session file: %w", err)
	}
	return nil
}
