package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case e, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHub_FanOutPreservesOrderPerSubscriber(t *testing.T) {
	h := NewHub(8)
	a := h.Subscribe()
	b := h.Subscribe()
	require.Equal(t, 2, h.Len())

	h.PublishProgress("x.jpg", StatusProcessing, "")
	h.PublishProgress("x.jpg", StatusCompleted, "")

	for _, sub := range []*Subscription{a, b} {
		first := recv(t, sub)
		assert.Equal(t, "progress", first.Type)
		assert.Equal(t, "x.jpg", first.Filename)
		assert.Equal(t, StatusProcessing, first.Status)
		assert.NotZero(t, first.Timestamp)
		assert.Equal(t, StatusCompleted, recv(t, sub).Status)
	}
}

func TestHub_SlowSubscriberIsDroppedOthersStillReceive(t *testing.T) {
	h := NewHub(1)
	slow := h.Subscribe()
	fast := h.Subscribe()

	h.PublishProgress("a", StatusProcessing, "")
	recv(t, fast)
	h.PublishProgress("a", StatusFailed, "processing failed")

	assert.Equal(t, 1, h.Len())
	got := recv(t, fast)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "processing failed", got.Error)

	// the buffered event is still readable, then the channel is closed
	assert.Equal(t, StatusProcessing, recv(t, slow).Status)
	_, ok := <-slow.C
	assert.False(t, ok)
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	h := NewHub(0)
	sub := h.Subscribe()
	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	assert.Zero(t, h.Len())

	_, ok := <-sub.C
	assert.False(t, ok)

	// publishing with no subscribers is fine
	h.PublishProgress("a", StatusCompleted, "")
}

func TestHub_ConcurrentSubscribeAndPublish(t *testing.T) {
	h := NewHub(4)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := h.Subscribe()
			time.Sleep(time.Millisecond)
			h.Unsubscribe(sub)
		}()
		go func() {
			defer wg.Done()
			h.PublishProgress("f", StatusProcessing, "")
		}()
	}
	wg.Wait()
	assert.Zero(t, h.Len())
}

func TestHub_ServeWS(t *testing.T) {
	h := NewHub(8)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.PublishProgress("Tresinky_20240101_120000.jpg", StatusCompleted, "")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, "progress", e.Type)
	assert.Equal(t, "Tresinky_20240101_120000.jpg", e.Filename)
	assert.Equal(t, StatusCompleted, e.Status)

	conn.Close()
	require.Eventually(t, func() bool { return h.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
