package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"robotsim-backend/models"

	"github.com/google/uuid"
)

// MemoryStore - FactoryStore kept in process memory, for headless runs
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.FactoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]models.FactoryRecord)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*models.FacilitySnapshot, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFactoryNotFound, id)
	}

	var snap models.FacilitySnapshot
	if err := json.Unmarshal([]byte(rec.Snapshot), &snap); err != nil {
		return nil, fmt.Errorf("decode factory %s: %w", id, err)
	}
	return &snap, nil
}

func (s *MemoryStore) Save(_ context.Context, snap *models.FacilitySnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	stored := *snap
	stored.SimulationRunning = false
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode factory %s: %w", snap.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec, ok := s.records[snap.ID]
	if !ok {
		rec.CreatedAt = now
	}
	rec.ID = snap.ID
	rec.Name = snap.Name
	rec.Snapshot = string(data)
	rec.UpdatedAt = now
	s.records[snap.ID] = rec
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.FactoryRecord, error) {
	s.mu.RLock()
	recs := make([]models.FactoryRecord, 0, len(s.records))
	for _, rec := range s.records {
		rec.Snapshot = ""
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
	return recs, nil
}
