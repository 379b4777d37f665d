// Package props is the persisted configuration store: flat string
// key→value properties with prefix-scoped listing and replacement.
// The root set and the global matcher live here.
package props

import (
	"sort"
	"strings"
	"sync"
)

// KV is one property entry.
type KV struct {
	Key   string
	Value string
}

// Store is the flat properties contract. Replace must be atomic: it
// either fully swaps the prefix's entries or leaves them untouched.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	// List returns every entry whose key has the prefix, sorted by key.
	List(prefix string) ([]KV, error)
	// Replace deletes all entries with the prefix and writes the
	// given entries in their place, atomically.
	Replace(prefix string, entries []KV) error
}

// Mem is an in-memory Store for tests.
type Mem struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMem() *Mem { return &Mem{m: make(map[string]string)} }

func (s *Mem) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *Mem) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *Mem) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *Mem) List(prefix string) ([]KV, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []KV
	for k, v := range s.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, KV{Key: k, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Mem) Replace(prefix string, entries []KV) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.m {
		if strings.HasPrefix(k, prefix) {
			delete(s.m, k)
		}
	}
	for _, e := range entries {
		s.m[e.Key] = e.Value
	}
	return nil
}
