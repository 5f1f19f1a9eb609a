package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"robotsim-backend/logger"
	"robotsim-backend/models"

	"gorm.io/gorm"
)

// EventLog buffers simulation events and writes them to the database in
// batches, either when the buffer is full or on a timer.
type EventLog struct {
	db *gorm.DB

	mu        sync.Mutex
	events    []models.SimulationEvent
	flushSize int           // 일괄 저장 크기
	flushTime time.Duration // 자동 플러시 시간

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewEventLog creates the buffer. Call Start to enable periodic flushing.
func NewEventLog(db *gorm.DB, flushSize int, flushInterval time.Duration) *EventLog {
	if flushSize <= 0 {
		flushSize = 50
	}
	if flushInterval <= 0 {
		flushInterval = 10 * time.Second
	}
	return &EventLog{
		db:        db,
		events:    make([]models.SimulationEvent, 0, flushSize*2),
		flushSize: flushSize,
		flushTime: flushInterval,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start - 자동 플러시 고루틴 시작
func (l *EventLog) Start() {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	go l.autoFlush()
	logger.Log.Infof("✅ 이벤트 로그 시작 (flushSize: %d, flushInterval: %v)", l.flushSize, l.flushTime)
}

func (l *EventLog) autoFlush() {
	defer close(l.done)

	ticker := time.NewTicker(l.flushTime)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Flush()
		case <-l.stopChan:
			l.Flush() // 종료 시 남은 이벤트 저장
			return
		}
	}
}

// Record adds an event to the buffer and triggers a flush once it is full.
func (l *EventLog) Record(ev models.SimulationEvent) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, ev)
	size := len(l.events)
	l.mu.Unlock()

	if size >= l.flushSize {
		go l.Flush()
	}
}

// Pending - number of buffered, unsaved events
func (l *EventLog) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Flush writes every buffered event. Returns the number saved.
func (l *EventLog) Flush() int {
	l.mu.Lock()
	if len(l.events) == 0 {
		l.mu.Unlock()
		return 0
	}
	toSave := make([]models.SimulationEvent, len(l.events))
	copy(toSave, l.events)
	l.events = l.events[:0]
	l.mu.Unlock()

	if err := l.db.CreateInBatches(toSave, 100).Error; err != nil {
		logger.Log.WithError(err).Errorf("❌ 이벤트 %d개 저장 실패", len(toSave))
		return 0
	}
	logger.Log.Debugf("💾 이벤트 %d개 저장 완료", len(toSave))
	return len(toSave)
}

// Stop flushes what is left and ends the background goroutine.
// Safe to call more than once; a no-op if Start was never called.
func (l *EventLog) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
	if l.started.Load() {
		<-l.done
	}
	l.Flush()
}

// Recent returns the latest events of a factory, newest first. An empty
// factoryID means all factories.
func (l *EventLog) Recent(ctx context.Context, factoryID string, limit int) ([]models.SimulationEvent, error) {
	return l.query(ctx, factoryID, "", limit)
}

// ByType returns the latest events of one type, newest first.
func (l *EventLog) ByType(ctx context.Context, factoryID, eventType string, limit int) ([]models.SimulationEvent, error) {
	return l.query(ctx, factoryID, eventType, limit)
}

func (l *EventLog) query(ctx context.Context, factoryID, eventType string, limit int) ([]models.SimulationEvent, error) {
	q := l.db.WithContext(ctx).Model(&models.SimulationEvent{})
	if factoryID != "" {
		q = q.Where("factory_id = ?", factoryID)
	}
	if eventType != "" {
		q = q.Where("event_type = ?", eventType)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var events []models.SimulationEvent
	err := q.Order("created_at DESC").Order("id DESC").Find(&events).Error
	return events, err
}

// EventStats - event counts over a time window
type EventStats struct {
	Total       int64            `json:"total"`
	EventCounts map[string]int64 `json:"event_counts"`
	Since       time.Time        `json:"since"`
}

// Stats counts events per type since the given time.
func (l *EventLog) Stats(ctx context.Context, factoryID string, since time.Time) (*EventStats, error) {
	q := func() *gorm.DB {
		q := l.db.WithContext(ctx).Model(&models.SimulationEvent{}).Where("created_at >= ?", since)
		if factoryID != "" {
			q = q.Where("factory_id = ?", factoryID)
		}
		return q
	}

	// 이벤트 타입별 카운트
	var counts []struct {
		EventType string
		Count     int64
	}
	if err := q().Select("event_type, COUNT(*) as count").Group("event_type").Scan(&counts).Error; err != nil {
		return nil, err
	}

	stats := &EventStats{EventCounts: make(map[string]int64, len(counts)), Since: since}
	for _, c := range counts {
		stats.EventCounts[c.EventType] = c.Count
		stats.Total += c.Count
	}
	return stats, nil
}
