package state

import (
	"encoding/json"
	"os"
)

// MemoryStore keeps everything in a plain map. It is the store used by tests
// and by the in-process demo mode; an optional snapshot file makes sequential
// manual runs resumable.
type MemoryStore struct {
	db       map[string]string
	filename string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{db: make(map[string]string)}
}

// NewSnapshotStore behaves like NewMemoryStore but mirrors every write into a
// JSON file so a restarted process sees the previous state.
func NewSnapshotStore(filename string) *MemoryStore {
	m := &MemoryStore{db: make(map[string]string), filename: filename}
	m.loadFromFile()
	return m
}

func (m *MemoryStore) Set(key, value string) {
	m.db[key] = value
	if err := m.saveToFile(); err != nil {
		panic(err)
	}
}

func (m *MemoryStore) Get(key string) *string {
	val, ok := m.db[key]
	if !ok {
		return nil
	}
	return &val
}

func (m *MemoryStore) Delete(key string) {
	delete(m.db, key)
	if err := m.saveToFile(); err != nil {
		panic(err)
	}
}

// Len reports how many keys are stored, handy for leak checks in tests.
func (m *MemoryStore) Len() int {
	return len(m.db)
}

func (m *MemoryStore) saveToFile() error {
	if m.filename == "" {
		return nil
	}
	data, err := json.MarshalIndent(m.db, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.filename, data, 0644)
}

func (m *MemoryStore) loadFromFile() {
	if m.filename == "" {
		return
	}
	data, err := os.ReadFile(m.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		panic(err)
	}
	if err := json.Unmarshal(data, &m.db); err != nil {
		panic(err)
	}
}
