// Package modeltest provides in-memory sessions for tests that need a loaded
// model.Handle without an ONNX Runtime library.
package modeltest

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Brownie44l1/railcrack-api/internal/model"
)

// Session is a model.Session returning whatever ScoreFunc computes.
type Session struct {
	ScoreFunc func(input []float32) (float32, error)

	calls  atomic.Int64
	closed atomic.Bool
}

// Run implements model.Session.
func (s *Session) Run(input []float32) ([]float32, error) {
	s.calls.Add(1)
	if s.closed.Load() {
		return nil, errors.New("session closed")
	}
	v, err := s.ScoreFunc(input)
	if err != nil {
		return nil, err
	}
	return []float32{v}, nil
}

// Close implements model.Session.
func (s *Session) Close() error {
	s.closed.Store(true)
	return nil
}

// Calls is the number of forward passes run.
func (s *Session) Calls() int64 { return s.calls.Load() }

// Closed reports whether Close was called.
func (s *Session) Closed() bool { return s.closed.Load() }

// Constant returns a session that always scores v.
func Constant(v float32) *Session {
	return &Session{ScoreFunc: func([]float32) (float32, error) { return v, nil }}
}

// Failing returns a session whose forward pass always fails with err.
func Failing(err error) *Session {
	return &Session{ScoreFunc: func([]float32) (float32, error) { return 0, err }}
}

// Mean returns a session scoring the input mean mapped from [-1, 1] to [0, 1].
// Brighter images score closer to 1 (Normal).
func Mean() *Session {
	return &Session{ScoreFunc: func(input []float32) (float32, error) {
		var sum float64
		for _, v := range input {
			sum += float64(v)
		}
		return float32((sum/float64(len(input)) + 1) / 2), nil
	}}
}

// Factory hands out the given sessions in order and records what it opened.
type Factory struct {
	mu       sync.Mutex
	sessions []model.Session
	Opened   []string
}

// NewFactory returns a Factory over sessions.
func NewFactory(sessions ...model.Session) *Factory {
	return &Factory{sessions: sessions}
}

// Open implements model.SessionFactory.
func (f *Factory) Open(artifactPath string, _ model.Metadata) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return nil, errors.New("no more sessions")
	}
	s := f.sessions[0]
	f.sessions = f.sessions[1:]
	f.Opened = append(f.Opened, artifactPath)
	return s, nil
}

// Handle returns a loaded handle over sessions with default metadata.
func Handle(sessions ...model.Session) *model.Handle {
	f := NewFactory(sessions...)
	pool, err := model.NewPool(len(sessions), func() (model.Session, error) {
		return f.Open("memory", model.DefaultMetadata())
	})
	if err != nil {
		panic(err)
	}
	return model.NewHandle(pool, model.DefaultMetadata(), nil, "full", "memory")
}
