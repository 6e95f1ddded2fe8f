package eventqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/tsp-lsp/src/tspd/entity"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func revision(r int) entity.Event {
	return entity.ActionEvent{Action: entity.GlobalStateChanged{Revision: entity.Revision(r)}}
}

func TestQueueOrder(t *testing.T) {
	q := New()
	for i := 0; i < 100; i++ {
		q.Push(revision(i))
	}

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		ev, err := q.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, revision(i), ev)
	}
}

func TestQueueCloseDrains(t *testing.T) {
	q := New()
	q.Push(revision(1))
	q.Close()
	q.Push(revision(2))

	ctx := context.Background()
	ev, err := q.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, revision(1), ev)

	ev, err = q.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, revision(2), ev)

	_, err = q.Next(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueueContextCanceled(t *testing.T) {
	q := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueueBlocksUntilPush(t *testing.T) {
	q := New()
	result := make(chan entity.Event)
	go func() {
		ev, err := q.Next(context.Background())
		assert.NoError(t, err)
		result <- ev
	}()

	q.Push(revision(7))
	select {
	case ev := <-result:
		assert.Equal(t, revision(7), ev)
	case <-time.After(5 * time.Second):
		t.Fatal("Next did not return after Push")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := New()
	const producers, perProducer = 8, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(revision(p*perProducer + i))
			}
		}(p)
	}

	seen := make(map[entity.Revision]bool)
	lastPerProducer := make(map[int]int)
	for len(seen) < producers*perProducer {
		ev, err := q.Next(context.Background())
		require.NoError(t, err)
		r := ev.(entity.ActionEvent).Action.(entity.GlobalStateChanged).Revision
		seen[r] = true

		// Events of one producer keep their relative order.
		p := int(r) / perProducer
		if last, ok := lastPerProducer[p]; ok {
			assert.Greater(t, int(r), last)
		}
		lastPerProducer[p] = int(r)
	}
	wg.Wait()
}
