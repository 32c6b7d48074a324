package settings

import "sync"

// Memory is a Provider that keeps settings in memory only.
type Memory struct {
	mu  sync.Mutex
	cur Settings
}

// NewMemory returns a Memory provider holding s.
func NewMemory(s Settings) *Memory {
	return &Memory{cur: s}
}

// Get returns the current settings.
func (m *Memory) Get() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// Put validates and stores s.
func (m *Memory) Put(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Version == 0 {
		s.Version = CurrentVersion
	}
	m.mu.Lock()
	m.cur = s
	m.mu.Unlock()
	return nil
}
