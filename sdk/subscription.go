package sdk

import (
	"context"
	"sync"
)

// Subscription is the result stream of a GraphQL subscription.
//
//	sub, err := client.Subscribe(ctx, op, vars)
//	if err != nil { ... }
//	defer sub.Close()
//	for sub.Next(ctx) {
//		var event T
//		if err := sub.Decode(&event); err != nil { ... }
//	}
//	if err := sub.Err(); err != nil { ... }
type Subscription struct {
	id     string
	limit  int
	wake   chan struct{}
	closed chan struct{}
	done   chan struct{}
	stop   func()

	mu      sync.Mutex
	pending []*Response
	ended   bool
	err     error
	current *Response

	closeOnce sync.Once
}

// newSubscription creates a subscription holding at most limit unread
// results.
func newSubscription(id string, limit int) *Subscription {
	return &Subscription{
		id:     id,
		limit:  limit,
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// ID returns the subscription identifier used on the wire.
func (s *Subscription) ID() string {
	return s.id
}

// Next waits for the next result. It returns false when the stream ended,
// the subscription was closed or ctx was cancelled; Err tells which.
// Results received before the stream ended are still returned.
func (s *Subscription) Next(ctx context.Context) bool {
	for {
		s.mu.Lock()
		if len(s.pending) > 0 {
			s.current = s.pending[0]
			s.pending[0] = nil
			s.pending = s.pending[1:]
			s.mu.Unlock()
			return true
		}
		ended := s.ended
		s.mu.Unlock()

		if ended {
			return false
		}

		select {
		case <-s.wake:
		case <-s.closed:
			return false
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return false
		}
	}
}

// Response returns the result read by the last successful Next.
func (s *Subscription) Response() *Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Decode unmarshals the data of the current result into dest.
func (s *Subscription) Decode(dest interface{}) error {
	resp := s.Response()
	if resp == nil {
		return ErrEmptyResponse
	}
	return resp.Decode(dest)
}

// Err returns the error that ended the stream, or nil after a clean completion.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the server side of the stream has ended.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the subscription. It is safe to call more than once.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.stop != nil {
			s.stop()
		}
	})
	return nil
}

// push queues a result without waiting for the consumer. It reports
// ErrSubscriptionOverflow once limit results are unread; the caller then
// ends the stream.
func (s *Subscription) push(resp *Response) error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	select {
	case <-s.closed:
		s.mu.Unlock()
		return nil
	default:
	}
	if s.limit > 0 && len(s.pending) >= s.limit {
		s.mu.Unlock()
		return ErrSubscriptionOverflow
	}
	s.pending = append(s.pending, resp)
	s.mu.Unlock()

	s.notify()
	return nil
}

// finish ends the stream with err (nil for a normal completion).
func (s *Subscription) finish(err error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	if err != nil && s.err == nil {
		s.err = err
	}
	s.mu.Unlock()

	close(s.done)
	s.notify()
}

func (s *Subscription) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) setErr(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}
