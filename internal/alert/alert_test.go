package alert

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/railcrack-api/internal/inference"
)

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	err      error
	closed   bool
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return f.err
}

func (f *fakePublisher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func TestNotifyPublishesQualifyingCracks(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	n, err := NewNotifier(pub, "railcrack/alerts", 75)
	require.NoError(t, err)

	crack := inference.DefaultRule().Decide(0.1)
	weak := inference.DefaultRule().Decide(0.3)
	normal := inference.DefaultRule().Decide(0.95)

	assert.True(t, n.Notify(&crack, NewEvent("a", "track.jpg", "full", &crack)))
	assert.False(t, n.Notify(&weak, NewEvent("b", "", "full", &weak)))
	assert.False(t, n.Notify(&normal, NewEvent("c", "", "full", &normal)))
	n.Close()

	require.Len(t, pub.payloads, 1)
	assert.Equal(t, "railcrack/alerts", pub.topics[0])
	assert.True(t, pub.closed)

	var ev Event
	require.NoError(t, json.Unmarshal(pub.payloads[0], &ev))
	assert.Equal(t, "a", ev.ID)
	assert.Equal(t, "Faulty", ev.Class)
	assert.Equal(t, 90.0, ev.Confidence)
	assert.Equal(t, "track.jpg", ev.Filename)
}

func TestNotifyPublishErrorIsNotFatal(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{err: errors.New("broker down")}
	n, err := NewNotifier(pub, "t", 0)
	require.NoError(t, err)

	res := inference.DefaultRule().Decide(0)
	assert.True(t, n.Notify(&res, NewEvent("x", "", "", &res)))
	n.Wait()
	assert.Len(t, pub.payloads, 1)
}

func TestNilNotifier(t *testing.T) {
	t.Parallel()

	var n *Notifier
	res := inference.DefaultRule().Decide(0)
	assert.False(t, n.Notify(&res, Event{}))
	n.Wait()
	n.Close()

	_, err := NewNotifier(nil, "t", 0)
	assert.ErrorIs(t, err, ErrNoPublisher)
}
