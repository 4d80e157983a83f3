package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value string `json:"value"`
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	return New(client, zerolog.Nop()), mini
}

func TestKeyCompleteness(t *testing.T) {
	require.True(t, NewKey("course", "42").Complete())
	require.False(t, NewKey("course", "").Complete())
	require.False(t, NewKey().Complete())
	require.True(t, NewEntityKey("course", 42).Complete())
	require.False(t, NewEntityKey("course", 0).Complete())
	require.Equal(t, "course:42", NewEntityKey("course", 42).String())
}

func TestGetIncompleteKeyNeverFetches(t *testing.T) {
	store, _ := newTestStore(t)

	fetched := false
	var dest payload
	err := store.Get(context.Background(), NewKey("course", ""), time.Minute, &dest, func(context.Context) (interface{}, error) {
		fetched = true
		return payload{}, nil
	})

	require.ErrorIs(t, err, ErrKeyIncomplete)
	require.False(t, fetched)
}

func TestGetCachesFetchedValue(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := NewKey("course", "1")

	var fetches int32
	fetch := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&fetches, 1)
		return payload{Value: "original"}, nil
	}

	var first payload
	require.NoError(t, store.Get(ctx, key, time.Minute, &first, fetch))
	require.Equal(t, "original", first.Value)

	var second payload
	require.NoError(t, store.Get(ctx, key, time.Minute, &second, fetch))
	require.Equal(t, "original", second.Value)
	require.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestGetDeduplicatesConcurrentFetches(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := NewKey("modules-course", "7")

	var fetches int32
	release := make(chan struct{})
	fetch := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&fetches, 1)
		<-release
		return payload{Value: "shared"}, nil
	}

	const readers = 10
	results := make([]payload, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_ = store.Get(ctx, key, time.Minute, &results[slot], fetch)
		}(i)
	}

	// Let the goroutines pile onto the in-flight fetch before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&fetches))
	for _, result := range results {
		require.Equal(t, "shared", result.Value)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := NewKey("course", "3")

	value := "before"
	fetch := func(context.Context) (interface{}, error) {
		return payload{Value: value}, nil
	}

	var got payload
	require.NoError(t, store.Get(ctx, key, time.Minute, &got, fetch))
	require.Equal(t, "before", got.Value)

	value = "after"
	require.NoError(t, store.Invalidate(ctx, key))

	require.NoError(t, store.Get(ctx, key, time.Minute, &got, fetch))
	require.Equal(t, "after", got.Value)
}

func TestMutateAppliesInvalidationsBeforeReturning(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	key := NewKey("course-enrollments", "2")

	count := 1
	fetch := func(context.Context) (interface{}, error) {
		return payload{Value: time.Duration(count).String()}, nil
	}

	var before payload
	require.NoError(t, store.Get(ctx, key, time.Minute, &before, fetch))

	err := store.Mutate(ctx, func(context.Context) error {
		count = 2
		return nil
	}, key)
	require.NoError(t, err)

	var after payload
	require.NoError(t, store.Get(ctx, key, time.Minute, &after, fetch))
	require.NotEqual(t, before.Value, after.Value)
}

func TestMutateSkipsInvalidationOnFailure(t *testing.T) {
	store, mini := newTestStore(t)
	ctx := context.Background()
	key := NewKey("course", "9")

	var got payload
	require.NoError(t, store.Get(ctx, key, time.Minute, &got, func(context.Context) (interface{}, error) {
		return payload{Value: "cached"}, nil
	}))

	mutationErr := store.Mutate(ctx, func(context.Context) error {
		return context.DeadlineExceeded
	}, key)
	require.Error(t, mutationErr)
	require.True(t, mini.Exists("course:9"))
}

func TestTTLExpiryEvicts(t *testing.T) {
	store, mini := newTestStore(t)
	ctx := context.Background()
	key := NewKey("course", "5")

	var fetches int32
	fetch := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&fetches, 1)
		return payload{Value: "ttl"}, nil
	}

	var got payload
	require.NoError(t, store.Get(ctx, key, time.Second, &got, fetch))
	mini.FastForward(2 * time.Second)
	require.NoError(t, store.Get(ctx, key, time.Second, &got, fetch))
	require.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}
