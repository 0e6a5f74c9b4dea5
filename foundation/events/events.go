// Package events fans the chain's event messages out to registered
// listeners, such as websocket clients watching the node mine.
package events

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Acquire once the events have been shut down.
var ErrClosed = errors.New("events are shut down")

// DefaultBuffer is the number of messages held for a listener that isn't
// ready to receive. Messages past this are dropped for that listener.
const DefaultBuffer = 100

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events.
type Events struct {
	buffer int

	mu     sync.RWMutex
	m      map[string]chan string
	closed bool
}

// New constructs an events for registering and receiving events. A buffer
// less than 1 uses DefaultBuffer.
func New(buffer int) *Events {
	if buffer < 1 {
		buffer = DefaultBuffer
	}

	return &Events{
		buffer: buffer,
		m:      make(map[string]chan string),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire. No listeners can be added afterwards.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	evt.closed = true
	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events. Acquiring an id twice returns the same channel.
func (evt *Events) Acquire(id string) (<-chan string, error) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if evt.closed {
		return nil, ErrClosed
	}

	ch, exists := evt.m[id]
	if !exists {
		ch = make(chan string, evt.buffer)
		evt.m[id] = ch
	}

	return ch, nil
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)
	return nil
}

// Listeners returns the number of registered listeners.
func (evt *Events) Listeners() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Send signals a message to every registered channel and returns the number
// of listeners it was delivered to. Send will not block waiting for a
// receiver on any given channel.
func (evt *Events) Send(s string) int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	var sent int
	for _, ch := range evt.m {
		select {
		case ch <- s:
			sent++
		default:
		}
	}

	return sent
}
