package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSyncDelivers(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var got []Event
	b.Subscribe(ChatCreated, func(e Event) { got = append(got, e) })

	b.PublishSync(Event{Type: ChatCreated, Data: "payload"})
	b.PublishSync(Event{Type: ChatDeleted, Data: "other"})

	require.Len(t, got, 1)
	assert.Equal(t, ChatCreated, got[0].Type)
	assert.Equal(t, "payload", got[0].Data)
}

func TestSubscribeAllSeesEverything(t *testing.T) {
	b := NewBus()
	defer b.Close()

	count := 0
	b.SubscribeAll(func(Event) { count++ })

	b.PublishSync(Event{Type: ChatCreated})
	b.PublishSync(Event{Type: MessageUpdated})
	b.PublishSync(Event{Type: ApprovalRequired})

	assert.Equal(t, 3, count)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus()
	defer b.Close()

	count := 0
	unsub := b.Subscribe(PartUpdated, func(Event) { count++ })

	b.PublishSync(Event{Type: PartUpdated})
	unsub()
	b.PublishSync(Event{Type: PartUpdated})

	assert.Equal(t, 1, count)
}

func TestAsyncPublishEventuallyDelivers(t *testing.T) {
	b := NewBus()
	defer b.Close()

	done := make(chan Event, 1)
	b.Subscribe(StreamFinished, func(e Event) { done <- e })

	b.Publish(Event{Type: StreamFinished, Data: "s1"})

	select {
	case e := <-done:
		assert.Equal(t, "s1", e.Data)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestClosedBusDropsEvents(t *testing.T) {
	b := NewBus()

	count := 0
	b.Subscribe(ChatCreated, func(Event) { count++ })
	require.NoError(t, b.Close())

	b.PublishSync(Event{Type: ChatCreated})
	assert.Equal(t, 0, count)
}
