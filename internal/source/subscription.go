package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/pubsub"
)

// SubscriptionSource turns a Pub/Sub subscription into an unbounded line
// stream. One message is outstanding at a time, so lines arrive in delivery
// order and each is settled before the next is handed out.
type SubscriptionSource struct {
	sub   *pubsub.Subscription
	lines chan Line

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	recvErr   error
	count     int
}

// NewSubscriptionSource configures sub for strictly ordered single-message delivery.
func NewSubscriptionSource(sub *pubsub.Subscription) *SubscriptionSource {
	sub.ReceiveSettings.MaxOutstandingMessages = 1
	sub.ReceiveSettings.NumGoroutines = 1
	return &SubscriptionSource{
		sub:   sub,
		lines: make(chan Line),
		done:  make(chan struct{}),
	}
}

func (s *SubscriptionSource) start(ctx context.Context) {
	recvCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		defer close(s.done)
		err := s.sub.Receive(recvCtx, func(cbCtx context.Context, msg *pubsub.Message) {
			line := Line{Data: msg.Data, Ack: msg.Ack, Nack: msg.Nack}
			select {
			case s.lines <- line:
			case <-cbCtx.Done():
				msg.Nack()
			}
		})
		if err != nil {
			s.recvErr = fmt.Errorf("receive from %s: %w", s.sub.ID(), err)
		}
	}()
}

// Next blocks until a message arrives, ctx is done or the receiver stops.
func (s *SubscriptionSource) Next(ctx context.Context) (Line, error) {
	s.startOnce.Do(func() { s.start(ctx) })
	select {
	case <-ctx.Done():
		return Line{}, ctx.Err()
	case line := <-s.lines:
		s.count++
		line.Number = s.count
		return line, nil
	case <-s.done:
		if err := ctx.Err(); err != nil {
			return Line{}, err
		}
		if s.recvErr != nil {
			return Line{}, s.recvErr
		}
		return Line{}, io.EOF
	}
}

// Close stops receiving; messages not yet handed out are nacked.
func (s *SubscriptionSource) Close() error {
	started := true
	s.startOnce.Do(func() { started = false })
	if !started {
		return nil
	}
	s.cancel()
	<-s.done
	if s.recvErr != nil && !errors.Is(s.recvErr, context.Canceled) {
		return s.recvErr
	}
	return nil
}
