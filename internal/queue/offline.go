package queue

import (
	"context"
	"log"
	"sync"
	"time"

	"hub-service/internal/models"
)

// Store persists the per-user backlog. Enqueue writes are confirmed before the
// message counts as queued; evictions and delivery marks are best-effort.
type Store interface {
	AppendMessage(ctx context.Context, msg models.QueuedMessage) error
	RemoveMessage(ctx context.Context, recipientID int, sequence int64) error
	MarkDelivered(ctx context.Context, recipientID int, sequence int64) error
	PurgeBefore(ctx context.Context, cutoff time.Time) error
	LoadQueued(ctx context.Context) ([]models.QueuedMessage, error)
}

type userQueue struct {
	mu    sync.Mutex
	items []models.QueuedMessage
	next  int64
}

// Queue is the bounded per-user FIFO of messages that could not be delivered
// at send time. Under sustained overflow the oldest entries are dropped: the
// queue favors recency over completeness, so readers of a long-offline user
// see the most recent max-length messages and lose the older ones.
type Queue struct {
	max   int
	store Store

	mu     sync.RWMutex
	queues map[int]*userQueue
}

// New builds an empty queue holding at most max messages per user.
func New(store Store, max int) *Queue {
	return &Queue{max: max, store: store, queues: make(map[int]*userQueue)}
}

// Load hydrates undelivered messages from the store.
func (q *Queue) Load(ctx context.Context) error {
	msgs, err := q.store.LoadQueued(ctx)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, msg := range msgs {
		uq, ok := q.queues[msg.RecipientID]
		if !ok {
			uq = &userQueue{}
			q.queues[msg.RecipientID] = uq
		}
		uq.items = append(uq.items, msg)
		if msg.Sequence >= uq.next {
			uq.next = msg.Sequence + 1
		}
	}
	log.Printf("offline queue loaded messages=%d users=%d", len(msgs), len(q.queues))
	return nil
}

func (q *Queue) getOrCreate(userID int) *userQueue {
	q.mu.RLock()
	uq, ok := q.queues[userID]
	q.mu.RUnlock()
	if ok {
		return uq
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if uq, ok = q.queues[userID]; !ok {
		uq = &userQueue{}
		q.queues[userID] = uq
	}
	return uq
}

// Enqueue appends msg to the recipient's backlog, assigning its sequence and
// enqueue time. At the configured maximum the oldest entry is evicted to make
// room; the return flag lets callers surface the loss.
func (q *Queue) Enqueue(ctx context.Context, msg models.QueuedMessage) (bool, error) {
	uq := q.getOrCreate(msg.RecipientID)

	uq.mu.Lock()
	defer uq.mu.Unlock()

	msg.Sequence = uq.next
	msg.EnqueuedAt = time.Now()
	if err := q.store.AppendMessage(ctx, msg); err != nil {
		return false, err
	}
	uq.next++

	evicted := false
	if len(uq.items) >= q.max {
		dropped := uq.items[0]
		uq.items = uq.items[1:]
		evicted = true
		log.Printf("offline queue overflow user=%d dropped_seq=%d", msg.RecipientID, dropped.Sequence)
		if err := q.store.RemoveMessage(ctx, dropped.RecipientID, dropped.Sequence); err != nil {
			log.Printf("offline queue evict persist failed user=%d seq=%d: %v", dropped.RecipientID, dropped.Sequence, err)
		}
	}
	uq.items = append(uq.items, msg)
	return evicted, nil
}

// Drain removes and returns the user's backlog in enqueue order. Used only by
// the hub's reconnect path.
func (q *Queue) Drain(userID int) []models.QueuedMessage {
	q.mu.RLock()
	uq, ok := q.queues[userID]
	q.mu.RUnlock()
	if !ok {
		return nil
	}

	uq.mu.Lock()
	items := uq.items
	uq.items = nil
	uq.mu.Unlock()
	return items
}

// MarkDelivered flags a drained entry as delivered and records it in the store.
func (q *Queue) MarkDelivered(ctx context.Context, msg *models.QueuedMessage) {
	msg.Delivered = true
	if err := q.store.MarkDelivered(ctx, msg.RecipientID, msg.Sequence); err != nil {
		log.Printf("offline queue mark delivered failed user=%d seq=%d: %v", msg.RecipientID, msg.Sequence, err)
	}
}

// PurgeOlderThan drops entries older than ttl across all users and returns how
// many were removed. A periodic caller owns the schedule.
func (q *Queue) PurgeOlderThan(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	q.mu.RLock()
	all := make([]*userQueue, 0, len(q.queues))
	for _, uq := range q.queues {
		all = append(all, uq)
	}
	q.mu.RUnlock()

	removed := 0
	for _, uq := range all {
		uq.mu.Lock()
		kept := uq.items[:0]
		for _, msg := range uq.items {
			if msg.EnqueuedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, msg)
		}
		uq.items = kept
		uq.mu.Unlock()
	}

	if removed > 0 {
		if err := q.store.PurgeBefore(context.Background(), cutoff); err != nil {
			log.Printf("offline queue purge persist failed: %v", err)
		}
		log.Printf("offline queue purged removed=%d ttl=%s", removed, ttl)
	}
	return removed
}

// SizeOf returns the user's current backlog length.
func (q *Queue) SizeOf(userID int) int {
	q.mu.RLock()
	uq, ok := q.queues[userID]
	q.mu.RUnlock()
	if !ok {
		return 0
	}
	uq.mu.Lock()
	defer uq.mu.Unlock()
	return len(uq.items)
}

// Stats summarises backlog occupancy for observability endpoints.
type Stats struct {
	TotalQueued      int `json:"total_queued"`
	UsersWithBacklog int `json:"users_with_backlog"`
	MaxPerUser       int `json:"max_per_user"`
}

// TotalStats returns a snapshot of queue occupancy.
func (q *Queue) TotalStats() Stats {
	q.mu.RLock()
	all := make([]*userQueue, 0, len(q.queues))
	for _, uq := range q.queues {
		all = append(all, uq)
	}
	q.mu.RUnlock()

	stats := Stats{MaxPerUser: q.max}
	for _, uq := range all {
		uq.mu.Lock()
		if len(uq.items) > 0 {
			stats.UsersWithBacklog++
			stats.TotalQueued += len(uq.items)
		}
		uq.mu.Unlock()
	}
	return stats
}
