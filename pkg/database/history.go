package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PancyStudios/JazzBotGo/pkg/logger"
	"github.com/PancyStudios/JazzBotGo/pkg/models"
	"github.com/PancyStudios/JazzBotGo/pkg/music"
)

const (
	// HistoryCollection stores one document per started track
	HistoryCollection = "history"
	// HistoryLimit is the number of entries kept per guild in memory
	HistoryLimit = 10
)

// HistoryStore records started tracks. Writes go through the offline queue
// so history survives a database outage; recent entries are also kept in
// memory and served from there when the database is unreachable.
type HistoryStore struct {
	db     *Database
	recent *Cache[[]models.PlayRecord]
	writes chan models.PlayRecord
	done   chan struct{}
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewHistoryStore creates a store and starts its writer. db may be nil, in
// which case history is kept in memory only.
func NewHistoryStore(db *Database) *HistoryStore {
	h := &HistoryStore{
		db:     db,
		recent: NewCache[[]models.PlayRecord](DefaultCacheSize),
		writes: make(chan models.PlayRecord, 64),
		done:   make(chan struct{}),
		now:    time.Now,
	}
	go h.writer()
	return h
}

// OnTransition records the track of every started transition
func (h *HistoryStore) OnTransition(snapshot music.Snapshot, event music.Event) {
	if event != music.EventStarted || snapshot.Current == nil {
		return
	}

	t := snapshot.Current
	rec := models.PlayRecord{
		GuildID:     snapshot.GuildID,
		Title:       t.DisplayTitle(),
		Author:      t.Author,
		URI:         t.URI,
		Source:      t.Source.String(),
		Duration:    t.Duration,
		RequesterID: t.RequesterID,
		StartedAt:   h.now(),
	}
	h.remember(rec)

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	select {
	case h.writes <- rec:
	default:
		logger.Warn(fmt.Sprintf("Cola de historial llena, se descarta %q", rec.Title), "History")
	}
}

func (h *HistoryStore) remember(rec models.PlayRecord) {
	h.recent.Update(rec.GuildID, func(old []models.PlayRecord, _ bool) []models.PlayRecord {
		entries := make([]models.PlayRecord, 0, HistoryLimit)
		entries = append(entries, rec)
		for _, e := range old {
			if len(entries) == HistoryLimit {
				break
			}
			entries = append(entries, e)
		}
		return entries
	})
}

func (h *HistoryStore) writer() {
	defer close(h.done)
	for rec := range h.writes {
		if h.db == nil {
			continue
		}
		h.db.Write(context.Background(), QueuedOperation{
			CollectionName: HistoryCollection,
			Operation:      OpInsert,
			Data:           rec,
		})
	}
}

// Recent returns up to limit entries of a guild, newest first
func (h *HistoryStore) Recent(ctx context.Context, guildID string, limit int) ([]models.PlayRecord, error) {
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}

	if h.db != nil && h.db.Connected() {
		records, err := h.find(ctx, guildID, limit)
		if err == nil {
			return records, nil
		}
		logger.Warn(fmt.Sprintf("Fallo al leer historial de la DB, intentando desde caché: %v", err), "History")
	}

	cached, _ := h.recent.Get(guildID)
	if len(cached) > limit {
		cached = cached[:limit]
	}
	return append([]models.PlayRecord(nil), cached...), nil
}

func (h *HistoryStore) find(ctx context.Context, guildID string, limit int) ([]models.PlayRecord, error) {
	col := h.db.GetCollection(HistoryCollection)
	if col == nil {
		return nil, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "startedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := col.Find(ctx, bson.M{"guildId": guildID}, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	records := make([]models.PlayRecord, 0, limit)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Close stops the writer after flushing pending records
func (h *HistoryStore) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.writes)
	h.mu.Unlock()
	<-h.done
}
