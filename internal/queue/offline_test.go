package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hub-service/internal/models"
)

type memStore struct {
	mu         sync.Mutex
	appended   []models.QueuedMessage
	removed    []int64
	delivered  []int64
	failAppend bool
}

func (s *memStore) AppendMessage(_ context.Context, msg models.QueuedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return errors.New("store down")
	}
	s.appended = append(s.appended, msg)
	return nil
}

func (s *memStore) RemoveMessage(_ context.Context, _ int, sequence int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, sequence)
	return nil
}

func (s *memStore) MarkDelivered(_ context.Context, _ int, sequence int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, sequence)
	return nil
}

func (s *memStore) PurgeBefore(context.Context, time.Time) error { return nil }

func (s *memStore) LoadQueued(context.Context) ([]models.QueuedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.QueuedMessage(nil), s.appended...), nil
}

func TestEnqueueAssignsMonotonicSequences(t *testing.T) {
	q := New(&memStore{}, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		evicted, err := q.Enqueue(ctx, models.QueuedMessage{RecipientID: 1, Payload: []byte("m")})
		require.NoError(t, err)
		require.False(t, evicted)
	}

	items := q.Drain(1)
	require.Len(t, items, 3)
	require.Equal(t, int64(0), items[0].Sequence)
	require.Equal(t, int64(1), items[1].Sequence)
	require.Equal(t, int64(2), items[2].Sequence)
}

func TestDrainReturnsFIFOAndEmptiesQueue(t *testing.T) {
	q := New(&memStore{}, 10)
	ctx := context.Background()

	for _, body := range []string{"first", "second", "third"} {
		_, err := q.Enqueue(ctx, models.QueuedMessage{RecipientID: 7, Payload: []byte(body)})
		require.NoError(t, err)
	}

	items := q.Drain(7)
	require.Len(t, items, 3)
	require.Equal(t, "first", string(items[0].Payload))
	require.Equal(t, "third", string(items[2].Payload))

	require.Zero(t, q.SizeOf(7))
	require.Empty(t, q.Drain(7))
}

func TestEnqueueEvictsOldestAtCapacity(t *testing.T) {
	store := &memStore{}
	q := New(store, 3)
	ctx := context.Background()

	for i, body := range []string{"a", "b", "c"} {
		evicted, err := q.Enqueue(ctx, models.QueuedMessage{RecipientID: 1, Payload: []byte(body)})
		require.NoError(t, err, "enqueue %d", i)
		require.False(t, evicted)
	}

	evicted, err := q.Enqueue(ctx, models.QueuedMessage{RecipientID: 1, Payload: []byte("d")})
	require.NoError(t, err)
	require.True(t, evicted)
	require.Equal(t, 3, q.SizeOf(1))

	items := q.Drain(1)
	require.Equal(t, "b", string(items[0].Payload))
	require.Equal(t, "d", string(items[2].Payload))

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Equal(t, []int64{0}, store.removed, "evicted head is removed from the store")
}

func TestQueueLengthNeverExceedsMax(t *testing.T) {
	q := New(&memStore{}, 5)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_, err := q.Enqueue(ctx, models.QueuedMessage{RecipientID: 2, Payload: []byte("x")})
		require.NoError(t, err)
		require.LessOrEqual(t, q.SizeOf(2), 5)
	}
	require.Equal(t, 5, q.SizeOf(2))
}

func TestEnqueueStoreFailureDoesNotQueue(t *testing.T) {
	store := &memStore{failAppend: true}
	q := New(store, 5)

	_, err := q.Enqueue(context.Background(), models.QueuedMessage{RecipientID: 3, Payload: []byte("x")})
	require.Error(t, err)
	require.Zero(t, q.SizeOf(3))
}

func TestQueuesAreIsolatedPerUser(t *testing.T) {
	q := New(&memStore{}, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := q.Enqueue(ctx, models.QueuedMessage{RecipientID: 1, Payload: []byte("u1")})
		require.NoError(t, err)
	}
	_, err := q.Enqueue(ctx, models.QueuedMessage{RecipientID: 2, Payload: []byte("u2")})
	require.NoError(t, err)

	// user 1 is at capacity; user 2's enqueue must not evict from user 1
	evicted, err := q.Enqueue(ctx, models.QueuedMessage{RecipientID: 2, Payload: []byte("u2")})
	require.NoError(t, err)
	require.False(t, evicted)
	require.Equal(t, 2, q.SizeOf(1))
	require.Equal(t, 2, q.SizeOf(2))
}

func TestMarkDeliveredFlagsMessage(t *testing.T) {
	store := &memStore{}
	q := New(store, 5)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, models.QueuedMessage{RecipientID: 1, Payload: []byte("x")})
	require.NoError(t, err)

	items := q.Drain(1)
	require.Len(t, items, 1)
	q.MarkDelivered(ctx, &items[0])
	require.True(t, items[0].Delivered)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Equal(t, []int64{0}, store.delivered)
}

func TestPurgeOlderThanDropsExpired(t *testing.T) {
	q := New(&memStore{}, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(ctx, models.QueuedMessage{RecipientID: 1, Payload: []byte("old")})
		require.NoError(t, err)
	}

	require.Zero(t, q.PurgeOlderThan(time.Hour), "fresh messages survive the ttl")
	require.Equal(t, 3, q.SizeOf(1))

	removed := q.PurgeOlderThan(-time.Second)
	require.Equal(t, 3, removed)
	require.Zero(t, q.SizeOf(1))
}

func TestLoadRestoresSequenceCounter(t *testing.T) {
	store := &memStore{}
	seed := New(store, 10)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := seed.Enqueue(ctx, models.QueuedMessage{RecipientID: 4, Payload: []byte("x")})
		require.NoError(t, err)
	}

	q := New(store, 10)
	require.NoError(t, q.Load(ctx))
	require.Equal(t, 2, q.SizeOf(4))

	_, err := q.Enqueue(ctx, models.QueuedMessage{RecipientID: 4, Payload: []byte("y")})
	require.NoError(t, err)

	items := q.Drain(4)
	require.Equal(t, int64(2), items[2].Sequence, "sequence continues after the highest loaded value")
}

func TestTotalStats(t *testing.T) {
	q := New(&memStore{}, 10)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, models.QueuedMessage{RecipientID: 1, Payload: []byte("x")})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, models.QueuedMessage{RecipientID: 1, Payload: []byte("y")})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, models.QueuedMessage{RecipientID: 2, Payload: []byte("z")})
	require.NoError(t, err)

	stats := q.TotalStats()
	require.Equal(t, 3, stats.TotalQueued)
	require.Equal(t, 2, stats.UsersWithBacklog)
	require.Equal(t, 10, stats.MaxPerUser)
}
