package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Manager checks memory first, then disk, promoting disk hits to memory.
type Manager struct {
	cfg    Config
	memory *MemoryCache
	disk   *DiskCache

	promotions atomic.Int64

	stop      chan struct{}
	stopOnce  sync.Once
	cleanupWg sync.WaitGroup
}

// Summary aggregates the tiers of a Manager.
type Summary struct {
	Memory     Stats
	Disk       Stats
	Promotions int64
	DiskTier   bool
}

// NewManager builds the tiers described by cfg and starts the cleanup loop
// when cfg.CleanupInterval is set.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{
		cfg:    cfg,
		memory: NewMemoryCache(cfg.MemoryCapacity),
		stop:   make(chan struct{}),
	}

	if cfg.Dir != "" {
		disk, err := NewDiskCache(cfg.Dir, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		m.disk = disk
	}

	if cfg.CleanupInterval > 0 {
		m.cleanupWg.Add(1)
		go m.cleanupLoop(cfg.CleanupInterval)
	}

	log.Debug("Speech cache ready", "memory", cfg.MemoryCapacity, "disk", cfg.Dir)
	return m, nil
}

func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		return data, true
	}
	if m.disk == nil {
		return nil, false
	}
	data, ok := m.disk.Get(key)
	if !ok {
		return nil, false
	}
	if err := m.memory.Put(key, data); err == nil {
		m.promotions.Add(1)
	}
	return data, true
}

// Put stores value in every tier. A value too large for one tier is still
// stored in the others.
func (m *Manager) Put(key string, value []byte) error {
	var errs []error
	if err := m.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		errs = append(errs, fmt.Errorf("memory: %w", err))
	}
	if m.disk != nil {
		if err := m.disk.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
			errs = append(errs, fmt.Errorf("disk: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Delete(key string) error {
	_ = m.memory.Delete(key)
	if m.disk != nil {
		return m.disk.Delete(key)
	}
	return nil
}

func (m *Manager) Clear() error {
	_ = m.memory.Clear()
	if m.disk != nil {
		return m.disk.Clear()
	}
	return nil
}

func (m *Manager) Contains(key string) bool {
	return m.memory.Contains(key) || (m.disk != nil && m.disk.Contains(key))
}

// Size returns the bytes held across tiers.
func (m *Manager) Size() int64 {
	size := m.memory.Size()
	if m.disk != nil {
		size += m.disk.Size()
	}
	return size
}

// Stats returns the memory tier counters, where most hits land.
func (m *Manager) Stats() Stats {
	return m.memory.Stats()
}

// Summary returns the counters of every tier.
func (m *Manager) Summary() Summary {
	s := Summary{
		Memory:     m.memory.Stats(),
		Promotions: m.promotions.Load(),
		DiskTier:   m.disk != nil,
	}
	if m.disk != nil {
		s.Disk = m.disk.Stats()
	}
	return s
}

// Cleanup drops entries older than the configured TTL.
func (m *Manager) Cleanup() int {
	if m.cfg.TTL <= 0 {
		return 0
	}
	removed := m.memory.Prune(m.cfg.TTL)
	if m.disk != nil {
		removed += m.disk.RemoveOlderThan(time.Now().Add(-m.cfg.TTL))
	}
	if removed > 0 {
		log.Debug("Pruned speech cache", "entries", removed)
	}
	return removed
}

// Close stops the cleanup loop and persists the disk index.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	m.cleanupWg.Wait()
	if m.disk != nil {
		if err := m.disk.Close(); err != nil {
			return fmt.Errorf("failed to close disk cache: %w", err)
		}
	}
	return nil
}

func (m *Manager) cleanupLoop(interval time.Duration) {
	defer m.cleanupWg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-m.stop:
			return
		}
	}
}
