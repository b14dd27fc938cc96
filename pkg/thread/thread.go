// Package thread provides a minimal join-able wrapper around a goroutine,
// used by the producer session's read loop so Stop can block in Join
// until that goroutine has exited, without a dedicated channel per caller.
package thread

import "sync"

// Thread represents a thread-like wrapper for a goroutine.
type Thread struct {
	body  func()
	mutex sync.Mutex
}

// New creates a new Thread for the given body function.
func New(body func()) *Thread {
	return &Thread{body: body}
}

// Start schedules the thread body to run on a new goroutine.
func (t *Thread) Start() {
	if t.body == nil {
		return
	}

	t.mutex.Lock()
	go t.run()
}

// Join blocks the calling goroutine until this Thread's body returns.
func (t *Thread) Join() {
	if t.body == nil {
		return
	}

	t.mutex.Lock()
	//lint:ignore SA2001 -- lock used purely as a completion latch
	t.mutex.Unlock()
}

func (t *Thread) run() {
	t.body()
	t.mutex.Unlock()
}
