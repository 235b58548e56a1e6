package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIDsAreMonotonic(t *testing.T) {
	caused := BySystem()

	first, opID := NewProgressionStart(caused, "starting", 10, nil)
	second := NewProgressionUpdate(opID, caused, "halfway", 5)
	third := NewProgressionEnd(opID, caused, true, "done", nil)

	assert.Equal(t, first.ID, opID, "operation ID is the start event's ID")
	assert.Less(t, first.ID, second.ID)
	assert.Less(t, second.ID, third.ID)
	assert.Equal(t, opID, second.Progression.OperationID)
	assert.Equal(t, opID, third.Progression.OperationID)
}

func TestEventIDsAreMonotonicUnderConcurrency(t *testing.T) {
	const workers = 50
	const perWorker = 20

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				event := NewProgressionUpdate(1, BySystem(), "tick", float64(j))
				mu.Lock()
				seen[event.ID] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker, "event IDs must be unique")
}

func TestProgressionEndCarriesOutcome(t *testing.T) {
	ok := NewProgressionEnd(42, ByUser("u1", "alice"), true, "instance created", &ProgressionEndValue{
		Kind: EndInstanceCreation,
		Instance: &InstanceSummary{
			ID:   "i1",
			Name: "survival",
			Port: 25565,
		},
	})

	require.NotNil(t, ok.Progression)
	require.NotNil(t, ok.Progression.Success)
	assert.True(t, *ok.Progression.Success)
	assert.Equal(t, "alice", ok.CausedBy.UserName)
	assert.Equal(t, CauseUser, ok.CausedBy.Kind)

	failed := NewProgressionEnd(42, BySystem(), false, "setup failed", nil)
	require.NotNil(t, failed.Progression.Success)
	assert.False(t, *failed.Progression.Success)
}

func TestBroadcasterDeliversToAllSubscribers(t *testing.T) {
	broadcaster := NewBroadcaster(8)

	idA, chA := broadcaster.Subscribe()
	idB, chB := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(idA)
	defer broadcaster.Unsubscribe(idB)

	assert.Equal(t, 2, broadcaster.Count())

	sent, _ := NewProgressionStart(BySystem(), "starting", 1, nil)
	broadcaster.Broadcast(sent)

	for _, ch := range []<-chan Event{chA, chB} {
		select {
		case got := <-ch:
			assert.Equal(t, sent.ID, got.ID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestBroadcasterDropsWhenSubscriberIsFull(t *testing.T) {
	broadcaster := NewBroadcaster(1)

	id, ch := broadcaster.Subscribe()
	defer broadcaster.Unsubscribe(id)

	broadcaster.Broadcast(NewProgressionUpdate(3, BySystem(), "first", 1))
	broadcaster.Broadcast(NewProgressionUpdate(3, BySystem(), "second", 2))

	got := <-ch
	assert.Equal(t, "first", got.Progression.Message)

	select {
	case unexpected := <-ch:
		t.Fatalf("expected second event to be dropped, got %q", unexpected.Progression.Message)
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	broadcaster := NewBroadcaster(8)

	id, ch := broadcaster.Subscribe()
	broadcaster.Unsubscribe(id)
	assert.Equal(t, 0, broadcaster.Count())

	broadcaster.Broadcast(NewProgressionUpdate(5, BySystem(), "tick", 1))

	select {
	case <-ch:
		t.Fatal("unsubscribed channel received an event")
	default:
	}
}
