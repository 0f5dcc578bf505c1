// Package alert publishes crack detections to downstream maintenance systems.
package alert

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/railcrack-api/internal/inference"
)

// ErrNoPublisher is returned when a Notifier is built without a Publisher.
var ErrNoPublisher = errors.New("alert publisher is required")

// Publisher delivers a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Close()
}

// Event is the payload published for one detected crack.
type Event struct {
	ID              string    `json:"id"`
	Filename        string    `json:"filename,omitempty"`
	Variant         string    `json:"variant,omitempty"`
	Class           string    `json:"class"`
	Confidence      float64   `json:"confidence"`
	ConfidenceLevel string    `json:"confidence_level"`
	Probability     float64   `json:"probability"`
	Message         string    `json:"message"`
	DetectedAt      time.Time `json:"detected_at"`
}

// NewEvent builds the event for res.
func NewEvent(id, filename, variant string, res *inference.Result) Event {
	return Event{
		ID:              id,
		Filename:        filename,
		Variant:         variant,
		Class:           res.Class,
		Confidence:      res.Confidence,
		ConfidenceLevel: res.ConfidenceLevel,
		Probability:     res.Probability,
		Message:         res.Message,
		DetectedAt:      time.Now().UTC(),
	}
}

// Notifier publishes crack results at or above a confidence floor.
// Publishing happens off the request path; failures are logged only.
// A nil Notifier ignores every result.
type Notifier struct {
	pub           Publisher
	topic         string
	minConfidence float64
	wg            sync.WaitGroup
}

// NewNotifier returns a Notifier publishing to topic.
func NewNotifier(pub Publisher, topic string, minConfidence float64) (*Notifier, error) {
	if pub == nil {
		return nil, ErrNoPublisher
	}
	return &Notifier{pub: pub, topic: topic, minConfidence: minConfidence}, nil
}

// Qualifies reports whether res would be published.
func (n *Notifier) Qualifies(res *inference.Result) bool {
	return n != nil && res != nil && res.HasCrack && res.Confidence >= n.minConfidence
}

// Notify publishes ev asynchronously when res qualifies. It reports whether a
// publish was started.
func (n *Notifier) Notify(res *inference.Result, ev Event) bool {
	if !n.Qualifies(res) {
		return false
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("id", ev.ID).Msg("failed to encode alert")
		return false
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.pub.Publish(n.topic, payload); err != nil {
			log.Error().Err(err).Str("topic", n.topic).Str("id", ev.ID).Msg("failed to publish alert")
			return
		}
		log.Debug().Str("topic", n.topic).Str("id", ev.ID).Float64("confidence", ev.Confidence).Msg("alert published")
	}()
	return true
}

// Wait blocks until in-flight publishes finish.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

// Close drains in-flight publishes and closes the publisher.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.wg.Wait()
	n.pub.Close()
}
