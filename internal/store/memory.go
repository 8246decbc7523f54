package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-bands-dashboard/internal/weather"
)

var (
	// ErrNotFound is returned when no fresh history is cached for a station.
	ErrNotFound = errors.New("no cached observations for station")
)

type entry struct {
	dataset   weather.Dataset
	fetchedAt time.Time
}

// MemoryStore is a concurrency-safe in-memory cache of station histories.
type MemoryStore struct {
	mu sync.RWMutex

	// key: station id
	data map[string]*entry

	// retention configuration
	maxStations int           // max number of cached stations
	maxAge      time.Duration // entries older than this are treated as missing

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxStations or maxAge is <= 0, it is treated as unlimited.
func NewMemoryStore(maxStations int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:        make(map[string]*entry),
		maxStations: maxStations,
		maxAge:      maxAge,
		now:         time.Now,
	}
}

// SaveDataset replaces the cached history of a station and enforces retention.
func (s *MemoryStore) SaveDataset(ds weather.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.data[ds.StationID] = &entry{dataset: ds, fetchedAt: now}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := now.Add(-s.maxAge)
		for id, e := range s.data {
			if e.fetchedAt.Before(cutoff) {
				delete(s.data, id)
			}
		}
	}

	// Enforce retention by count, oldest first.
	for s.maxStations > 0 && len(s.data) > s.maxStations {
		var oldestID string
		var oldest time.Time
		for id, e := range s.data {
			if oldestID == "" || e.fetchedAt.Before(oldest) {
				oldestID, oldest = id, e.fetchedAt
			}
		}
		delete(s.data, oldestID)
	}
}

// GetDataset returns the cached history of a station if it is still fresh.
func (s *MemoryStore) GetDataset(stationID string) (weather.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[stationID]
	if !ok {
		return weather.Dataset{}, ErrNotFound
	}
	if s.maxAge > 0 && s.now().Sub(e.fetchedAt) > s.maxAge {
		return weather.Dataset{}, ErrNotFound
	}
	return e.dataset, nil
}

// Stations lists the cached station ids.
func (s *MemoryStore) Stations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids
}
