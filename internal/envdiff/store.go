package envdiff

import (
	"os"
	"sort"
	"strings"
	"sync"
)

// Store is the environment table a Differ reads from and writes to.
type Store interface {
	// Environ returns the bindings in NAME=VALUE form. The result is
	// handed to the shell so its "before" dump matches the store.
	Environ() []string
	Lookup(name string) (string, bool)
	Set(name, value string) error
	Unset(name string) error
}

// OSStore is the environment of the current process.
//
// It is not safe to refresh an OSStore from several goroutines at once.
type OSStore struct{}

var _ Store = OSStore{}

func (OSStore) Environ() []string                 { return os.Environ() }
func (OSStore) Lookup(name string) (string, bool) { return os.LookupEnv(name) }
func (OSStore) Set(name, value string) error      { return os.Setenv(name, value) }
func (OSStore) Unset(name string) error           { return os.Unsetenv(name) }

// MapStore is an in-memory Store, mostly useful in tests.
type MapStore struct {
	mu   sync.Mutex
	vars map[string]string
}

var _ Store = (*MapStore)(nil)

// NewMapStore returns a MapStore seeded from NAME=VALUE entries.
// Entries without "=" are ignored.
func NewMapStore(environ ...string) *MapStore {
	s := &MapStore{vars: make(map[string]string, len(environ))}
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			s.vars[k] = v
		}
	}
	return s
}

// Environ returns the bindings sorted by name.
func (s *MapStore) Environ() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	env := make([]string, 0, len(s.vars))
	for k, v := range s.vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

func (s *MapStore) Lookup(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vars[name]
	return v, ok
}

func (s *MapStore) Set(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = value
	return nil
}

func (s *MapStore) Unset(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vars, name)
	return nil
}

// Len returns the number of bindings.
func (s *MapStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vars)
}
