package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"robotsim-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrFactoryNotFound = errors.New("factory not found")

// FactoryStore persists facility snapshots.
type FactoryStore interface {
	Load(ctx context.Context, id string) (*models.FacilitySnapshot, error)
	// Save stores snap, assigning an id when it has none.
	Save(ctx context.Context, snap *models.FacilitySnapshot) error
	List(ctx context.Context) ([]models.FactoryRecord, error)
}

// GormStore keeps one JSON encoded snapshot per factory row.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Load(ctx context.Context, id string) (*models.FacilitySnapshot, error) {
	var rec models.FactoryRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrFactoryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load factory %s: %w", id, err)
	}

	var snap models.FacilitySnapshot
	if err := json.Unmarshal([]byte(rec.Snapshot), &snap); err != nil {
		return nil, fmt.Errorf("decode factory %s: %w", id, err)
	}
	snap.ID = rec.ID
	return &snap, nil
}

func (s *GormStore) Save(ctx context.Context, snap *models.FacilitySnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	// runtime flags are not part of the stored layout
	stored := *snap
	stored.SimulationRunning = false

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode factory %s: %w", snap.ID, err)
	}

	now := time.Now()
	rec := models.FactoryRecord{
		ID:        snap.ID,
		Name:      snap.Name,
		Snapshot:  string(data),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "snapshot", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save factory %s: %w", snap.ID, err)
	}
	return nil
}

// List returns the stored factories without their snapshot payload.
func (s *GormStore) List(ctx context.Context) ([]models.FactoryRecord, error) {
	var recs []models.FactoryRecord
	err := s.db.WithContext(ctx).
		Select("id", "name", "created_at", "updated_at").
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list factories: %w", err)
	}
	return recs, nil
}
