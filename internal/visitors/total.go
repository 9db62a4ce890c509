package visitors

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ebook-assistant/internal/logger"
	"ebook-assistant/models"
)

const (
	totalVisitsCollection = "total_visits"
	totalVisitsDocID      = 1
	countedKeyPrefix      = "visitors:counted:"
)

// TotalCounter is the all-time visit counter.
type TotalCounter interface {
	Increment(ctx context.Context) (int64, error)
	Total(ctx context.Context) (int64, error)
}

// MongoTotalCounter stores the count in the single document {_id: 1, count}.
type MongoTotalCounter struct {
	coll *mongo.Collection
}

func NewMongoTotalCounter(db *mongo.Database) *MongoTotalCounter {
	return &MongoTotalCounter{coll: db.Collection(totalVisitsCollection)}
}

func (c *MongoTotalCounter) Increment(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc models.TotalVisitsDoc
	err := c.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": totalVisitsDocID},
		bson.M{"$inc": bson.M{"count": 1}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Count, nil
}

func (c *MongoTotalCounter) Total(ctx context.Context) (int64, error) {
	var doc models.TotalVisitsDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": totalVisitsDocID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Count, nil
}

// MemoryTotalCounter is used when MongoDB is not configured.
type MemoryTotalCounter struct {
	mu    sync.Mutex
	count int64
}

func NewMemoryTotalCounter(start int64) *MemoryTotalCounter {
	return &MemoryTotalCounter{count: start}
}

func (c *MemoryTotalCounter) Increment(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return c.count, nil
}

func (c *MemoryTotalCounter) Total(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count, nil
}

// Ledger remembers which sessions were already counted.
type Ledger interface {
	// FirstVisit reports true exactly once per session id within the window.
	FirstVisit(ctx context.Context, sessionID string) (bool, error)
	// Forget undoes FirstVisit so the session can be counted again.
	Forget(ctx context.Context, sessionID string) error
}

type MemoryLedger struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

func NewMemoryLedger(window time.Duration) *MemoryLedger {
	return &MemoryLedger{window: window, seen: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryLedger) FirstVisit(_ context.Context, sessionID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if at, ok := l.seen[sessionID]; ok && now.Sub(at) < l.window {
		return false, nil
	}
	l.seen[sessionID] = now
	return true, nil
}

func (l *MemoryLedger) Forget(_ context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, sessionID)
	return nil
}

// Prune forgets sessions counted longer ago than the window.
func (l *MemoryLedger) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.window)
	removed := 0
	for id, at := range l.seen {
		if at.Before(cutoff) {
			delete(l.seen, id)
			removed++
		}
	}
	return removed
}

// RedisLedger uses SET NX with a TTL per session id.
type RedisLedger struct {
	rdb    *redis.Client
	window time.Duration
}

func NewRedisLedger(rdb *redis.Client, window time.Duration) *RedisLedger {
	return &RedisLedger{rdb: rdb, window: window}
}

func (l *RedisLedger) FirstVisit(ctx context.Context, sessionID string) (bool, error) {
	return l.rdb.SetNX(ctx, countedKeyPrefix+sessionID, 1, l.window).Result()
}

func (l *RedisLedger) Forget(ctx context.Context, sessionID string) error {
	return l.rdb.Del(ctx, countedKeyPrefix+sessionID).Err()
}

// TotalVisits counts each session at most once.
type TotalVisits struct {
	counter TotalCounter
	ledger  Ledger
}

func NewTotalVisits(counter TotalCounter, ledger Ledger) *TotalVisits {
	return &TotalVisits{counter: counter, ledger: ledger}
}

// Record counts sessionID if it has not been counted yet and returns the
// total either way.
func (v *TotalVisits) Record(ctx context.Context, sessionID string) (models.TotalVisits, error) {
	first, err := v.ledger.FirstVisit(ctx, sessionID)
	if err != nil {
		return models.TotalVisits{}, err
	}
	if !first {
		return v.Get(ctx)
	}
	n, err := v.counter.Increment(ctx)
	if err != nil {
		// Uncounted sessions must stay eligible for the next attempt.
		if ferr := v.ledger.Forget(context.WithoutCancel(ctx), sessionID); ferr != nil {
			logger.Warn("Failed to release visit ledger entry", "session_id", sessionID, "error", ferr)
		}
		return models.TotalVisits{}, err
	}
	return models.TotalVisits{Count: n}, nil
}

func (v *TotalVisits) Get(ctx context.Context) (models.TotalVisits, error) {
	n, err := v.counter.Total(ctx)
	if err != nil {
		return models.TotalVisits{}, err
	}
	return models.TotalVisits{Count: n}, nil
}

// Sweep prunes the ledger when it is process-local.
func (v *TotalVisits) Sweep() int {
	if l, ok := v.ledger.(*MemoryLedger); ok {
		return l.Prune()
	}
	return 0
}
