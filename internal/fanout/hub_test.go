package fanout

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	v1 "github.com/drlau/megumin.love/internal/api/v1"
)

type recordingMetrics struct {
	mu     sync.Mutex
	gauges []int
	clicks int
	plays  int
}

func (m *recordingMetrics) SubscribersChanged(active int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges = append(m.gauges, active)
}

func (m *recordingMetrics) ClickEvent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks++
}

func (m *recordingMetrics) PlayEvent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays++
}

func (m *recordingMetrics) snapshot() (gauges []int, clicks, plays int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.gauges...), m.clicks, m.plays
}

func newSubscriber(buffer int) *subscriber {
	return &subscriber{id: uuid.New(), send: make(chan []byte, buffer)}
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	h := NewHub(nil)

	first := newSubscriber(sendBuffer)
	second := newSubscriber(sendBuffer)
	require.True(t, h.register(first))
	require.True(t, h.register(second))
	require.Equal(t, 2, h.Count())

	h.Broadcast(v1.CounterUpdate(7, v1.Statistics{Total: 7, Daily: 7, Average: 7}))

	for _, sub := range []*subscriber{first, second} {
		var n v1.Notification
		require.NoError(t, json.Unmarshal(<-sub.send, &n))
		require.Equal(t, v1.TypeCounterUpdate, n.Type)
		require.NotNil(t, n.Values.Total)
		require.Equal(t, int64(7), *n.Values.Total)
	}
}

func TestBroadcastEvictsSubscriberWithFullBuffer(t *testing.T) {
	h := NewHub(nil)

	slow := newSubscriber(1)
	slow.send <- []byte("stale")
	healthy := newSubscriber(sendBuffer)
	require.True(t, h.register(slow))
	require.True(t, h.register(healthy))

	h.Broadcast(v1.CounterUpdate(1, v1.Statistics{}))

	require.Equal(t, 1, h.Count())

	// The healthy subscriber still got the payload.
	var n v1.Notification
	require.NoError(t, json.Unmarshal(<-healthy.send, &n))
	require.Equal(t, v1.TypeCounterUpdate, n.Type)

	// The slow one keeps its stale entry and then sees a closed channel.
	require.Equal(t, []byte("stale"), <-slow.send)
	_, open := <-slow.send
	require.False(t, open)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := NewHub(nil)

	sub := newSubscriber(sendBuffer)
	require.True(t, h.register(sub))

	h.unregister(sub)
	h.unregister(sub)
	require.Equal(t, 0, h.Count())
}

func TestCloseRefusesNewSubscribers(t *testing.T) {
	h := NewHub(nil)

	sub := newSubscriber(sendBuffer)
	require.True(t, h.register(sub))

	h.Close()
	h.Close()

	_, open := <-sub.send
	require.False(t, open)
	require.False(t, h.register(newSubscriber(sendBuffer)))
	require.Equal(t, 0, h.Count())

	// Broadcasting into a closed hub is harmless.
	h.Broadcast(v1.CounterUpdate(1, v1.Statistics{}))
}

func TestSubscriberGaugeFollowsRegistrations(t *testing.T) {
	m := &recordingMetrics{}
	h := NewHub(m)

	first := newSubscriber(sendBuffer)
	second := newSubscriber(sendBuffer)
	h.register(first)
	h.register(second)
	h.unregister(first)
	h.Close()

	gauges, _, _ := m.snapshot()
	require.Equal(t, []int{1, 2, 1, 0}, gauges)
}

type fakeBoard struct {
	mu     sync.Mutex
	clicks int
	plays  map[string]int
	total  int64
	stats  v1.Statistics
	sounds []v1.Sound
}

func newFakeBoard(total int64, sounds ...v1.Sound) *fakeBoard {
	return &fakeBoard{
		total:  total,
		stats:  v1.Statistics{Total: total},
		plays:  make(map[string]int),
		sounds: sounds,
	}
}

func (f *fakeBoard) RecordClick() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks++
}

func (f *fakeBoard) RecordPlay(filename string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sounds {
		if s.Filename == filename {
			f.plays[filename]++
			return true
		}
	}
	return false
}

func (f *fakeBoard) Snapshot() (int64, v1.Statistics, []v1.Sound) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total, f.stats, append([]v1.Sound(nil), f.sounds...)
}

func (f *fakeBoard) counts() (clicks int, plays map[string]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	plays = make(map[string]int, len(f.plays))
	for k, v := range f.plays {
		plays[k] = v
	}
	return f.clicks, plays
}

func TestHandleEvent(t *testing.T) {
	board := newFakeBoard(0, v1.Sound{ID: 1, Filename: "explosion"})
	m := &recordingMetrics{}
	h := NewHub(m)

	tests := []struct {
		name       string
		payload    string
		wantClicks int
		wantPlays  int
	}{
		{name: "click", payload: `{"type":"click"}`, wantClicks: 1},
		{name: "known play", payload: `{"type":"playEvent","sound":{"filename":"explosion"}}`, wantPlays: 1},
		{name: "unknown play", payload: `{"type":"playEvent","sound":{"filename":"ghost"}}`},
		{name: "play without sound", payload: `{"type":"playEvent"}`},
		{name: "unknown type", payload: `{"type":"subscribe"}`},
		{name: "malformed", payload: `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			beforeClicks, beforePlays := board.counts()
			_, _, beforeMetricPlays := m.snapshot()

			h.handleEvent([]byte(tt.payload), board)

			clicks, plays := board.counts()
			require.Equal(t, beforeClicks+tt.wantClicks, clicks)
			require.Equal(t, beforePlays["explosion"]+tt.wantPlays, plays["explosion"])

			_, _, metricPlays := m.snapshot()
			require.Equal(t, beforeMetricPlays+tt.wantPlays, metricPlays)
		})
	}

	_, metricClicks, _ := m.snapshot()
	require.Equal(t, 1, metricClicks)
}
