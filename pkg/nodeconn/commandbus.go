package nodeconn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCommandTimeout bounds how long sendCommand waits for a matching
// command_result before failing the waiter with a timeout error.
const DefaultCommandTimeout = 30 * time.Second

// ErrChannelClosed is returned to every pending waiter when the channel it
// was issued on closes before a result arrives.
var ErrChannelClosed = fmt.Errorf("nodeconn: channel closed")

// ErrCommandTimeout is returned when no command_result arrives within the
// command's deadline.
var ErrCommandTimeout = fmt.Errorf("nodeconn: command timed out")

// CommandBus correlates outbound commands with their inbound results on a
// single channel. One CommandBus exists per connected node; its pending
// map is keyed by correlation id, not by node, so it only ever needs to
// worry about ordering within its own channel.
type CommandBus struct {
	mu      sync.Mutex
	pending map[string]chan *CommandResultFrame
	sender  func(frame *CommandFrame) error
	closed  bool
}

// NewCommandBus wraps a send function (writing a CommandFrame to the live
// channel) with correlation-id bookkeeping.
func NewCommandBus(sender func(frame *CommandFrame) error) *CommandBus {
	return &CommandBus{
		pending: make(map[string]chan *CommandResultFrame),
		sender:  sender,
	}
}

// Send issues a command and blocks until its result arrives, the context
// is canceled, or timeout elapses. The correlation id is generated here so
// callers never need to manage it.
func (b *CommandBus) Send(ctx context.Context, cmdType string, payload interface{}, timeout time.Duration) (*CommandResultFrame, error) {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("nodeconn: marshal command payload: %w", err)
	}

	id := uuid.NewString()
	waiter := make(chan *CommandResultFrame, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrChannelClosed
	}
	b.pending[id] = waiter
	b.mu.Unlock()

	cleanup := func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}

	if err := b.sender(&CommandFrame{ID: id, Type: cmdType, Payload: raw}); err != nil {
		cleanup()
		return nil, fmt.Errorf("nodeconn: send command %s: %w", cmdType, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-waiter:
		return result, nil
	case <-timer.C:
		cleanup()
		return nil, ErrCommandTimeout
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	}
}

// Resolve delivers a command_result frame to its waiting Send call, if
// one is still pending. Results for unknown (already-timed-out or
// duplicate) ids are dropped.
func (b *CommandBus) Resolve(result *CommandResultFrame) {
	b.mu.Lock()
	waiter, ok := b.pending[result.ID]
	if ok {
		delete(b.pending, result.ID)
	}
	b.mu.Unlock()

	if ok {
		waiter <- result
	}
}

// Close fails every pending waiter with ErrChannelClosed and marks the bus
// closed so any further Send calls fail fast instead of blocking forever.
func (b *CommandBus) Close() {
	b.mu.Lock()
	b.closed = true
	pending := b.pending
	b.pending = make(map[string]chan *CommandResultFrame)
	b.mu.Unlock()

	for _, waiter := range pending {
		waiter <- &CommandResultFrame{Success: false, Error: ErrChannelClosed.Error()}
	}
}
