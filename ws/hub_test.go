package ws

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(hub *Hub, topic string, memberID uint) *Client {
	return NewClient(hub, nil, nil, topic, 1, memberID)
}

// subscribe before the run loop starts, so the test does not depend on
// channel scheduling.
func preRegister(hub *Hub, clients ...*Client) {
	for _, c := range clients {
		subs, ok := hub.topics[c.topic]
		if !ok {
			subs = make(map[*Client]struct{})
			hub.topics[c.topic] = subs
		}
		subs[c] = struct{}{}
	}
}

func receiveWire(t *testing.T, c *Client) types.WireMessage {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed unexpectedly")
		msg := types.WireMessage{}
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no broadcast received")
		return types.WireMessage{}
	}
}

func TestHubBroadcastPreservesOrder(t *testing.T) {
	hub := NewHub(time.Hour, "")
	topic := types.VariantMate.Topic(1)
	sub1 := testClient(hub, topic, 101)
	sub2 := testClient(hub, topic, 102)
	other := testClient(hub, types.VariantMate.Topic(2), 103)
	preRegister(hub, sub1, sub2, other)

	go hub.Run()
	defer hub.Stop()

	for i := 1; i <= 5; i++ {
		hub.Publish(topic, types.WireMessage{MessageID: fmt.Sprintf("m%d", i), Content: fmt.Sprintf("message %d", i)})
	}

	for _, sub := range []*Client{sub1, sub2} {
		for i := 1; i <= 5; i++ {
			msg := receiveWire(t, sub)
			assert.Equal(t, fmt.Sprintf("m%d", i), msg.MessageID)
		}
	}

	// nothing leaks onto other topics
	select {
	case data := <-other.Send:
		t.Fatalf("unexpected broadcast on other topic: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(time.Hour, "")
	topic := types.VariantGoods.Topic(1)
	slow := testClient(hub, topic, 101)
	preRegister(hub, slow)

	go hub.Run()
	defer hub.Stop()

	// one more than the client's buffer; the overflowing broadcast must
	// drop the client instead of stalling the room
	for i := 0; i <= sendChannelSize; i++ {
		hub.Publish(topic, types.WireMessage{MessageID: fmt.Sprintf("m%d", i)})
	}
	// let the run loop work through the queued broadcasts before draining,
	// otherwise the drain frees buffer space and nothing ever overflows
	time.Sleep(200 * time.Millisecond)

	received := 0
	for {
		select {
		case _, ok := <-slow.Send:
			if !ok {
				assert.Equal(t, sendChannelSize, received)
				return
			}
			received++
		case <-time.After(2 * time.Second):
			t.Fatal("slow subscriber was never dropped")
		}
	}
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub(time.Hour, "")
	topic := types.VariantMate.Topic(1)
	sub := testClient(hub, topic, 101)
	preRegister(hub, sub)

	go hub.Run()
	defer hub.Stop()

	hub.Unregister <- sub
	select {
	case _, ok := <-sub.Send:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("send channel was not closed on unregister")
	}
}

func TestSweepIdle(t *testing.T) {
	hub := NewHub(30*time.Minute, "")
	topic := types.VariantMate.Topic(1)
	fresh := testClient(hub, topic, 101)
	stale := testClient(hub, topic, 102)
	atomic.StoreInt64(&stale.lastSeen, time.Now().Add(-time.Hour).UnixNano())
	preRegister(hub, fresh, stale)

	// the run loop is not started, the sweep runs synchronously here
	hub.sweepIdle()

	_, staleKept := hub.topics[topic][stale]
	assert.False(t, staleKept)
	_, freshKept := hub.topics[topic][fresh]
	assert.True(t, freshKept)

	_, ok := <-stale.Send
	assert.False(t, ok, "swept subscriber's send channel must be closed")
}

func TestPublishAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(time.Hour, "")
	hub.Stop()

	done := make(chan struct{})
	go func() {
		// more than the broadcast buffer
		for i := 0; i < broadcastChannelSize+10; i++ {
			hub.Publish("chat/mate/1", types.WireMessage{})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked after stop")
	}
}
