package session_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/tabula/pkg/adapters/memory"
	"github.com/aretw0/tabula/pkg/domain"
	"github.com/aretw0/tabula/pkg/ports"
	"github.com/aretw0/tabula/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) Load(ctx context.Context, sessionID string) (domain.StoredSnapshot, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Load(ctx, sessionID)
}

func (s SlowStore) Save(ctx context.Context, sessionID string, snap domain.StoredSnapshot) error {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Save(ctx, sessionID, snap)
}

func TestManager_UpdateSerializesReadModifyWrite(t *testing.T) {
	manager := session.NewManager(SlowStore{memory.NewStore()})
	ctx := context.Background()
	id := "race-test"

	increment := func(ctx context.Context, cur domain.StoredSnapshot, found bool) (domain.StoredSnapshot, error) {
		n := 0
		if found {
			n, _ = strconv.Atoi(string(cur.Data))
		}
		return domain.StoredSnapshot{Kind: domain.KindTable, Data: domain.Snapshot(strconv.Itoa(n + 1))}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, id, increment)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Snapshot("20"), snap.Data, "no update may be lost")
}

func TestManager_UpdateFailureWritesNothing(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, "s", domain.StoredSnapshot{Kind: domain.KindTable, Data: "v1"}))

	boom := errors.New("boom")
	_, err := manager.Update(ctx, "s", func(context.Context, domain.StoredSnapshot, bool) (domain.StoredSnapshot, error) {
		return domain.StoredSnapshot{}, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = manager.Update(ctx, "s", func(context.Context, domain.StoredSnapshot, bool) (domain.StoredSnapshot, error) {
		return domain.StoredSnapshot{Kind: domain.KindTable}, nil
	})
	assert.Error(t, err, "empty snapshots are refused")

	snap, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, domain.Snapshot("v1"), snap.Data)
}

func TestManager_SaveStampsTime(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	manager := session.NewManager(memory.NewStore(), session.WithClock(func() time.Time { return at }))
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, "s", domain.StoredSnapshot{Kind: domain.KindDashboard, Data: "d"}))
	snap, err := manager.Load(ctx, "s")
	require.NoError(t, err)
	assert.True(t, at.Equal(snap.SavedAt))
}

func TestManager_LoadMissing(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	_, err := manager.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestManager_EmptySessionID(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	err := manager.WithLock(context.Background(), "", func(context.Context) error { return nil })
	assert.Error(t, err)
}

type countingLocker struct {
	mu      sync.Mutex
	locks   int
	unlocks int
	ttl     time.Duration
	lockErr error
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lockErr != nil {
		return nil, l.lockErr
	}
	l.locks++
	l.ttl = ttl
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocks++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, "s", domain.StoredSnapshot{Kind: domain.KindTable, Data: "x"}))
	_, err := manager.Load(ctx, "s")
	require.NoError(t, err)

	assert.Equal(t, 2, locker.locks)
	assert.Equal(t, 2, locker.unlocks)
	assert.Equal(t, 5*time.Second, locker.ttl)
}

func TestManager_DistributedLockFailure(t *testing.T) {
	locker := &countingLocker{lockErr: errors.New("held elsewhere")}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	err := manager.Save(context.Background(), "s", domain.StoredSnapshot{Kind: domain.KindTable, Data: "x"})
	assert.ErrorContains(t, err, "held elsewhere")
}

func TestNewID(t *testing.T) {
	a, b := session.NewID(), session.NewID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
