package scanner

import (
	"context"
	"sync"
)

// RemoteCamera stands in for a capture device that lives on the kiosk front
// end: acquisition always succeeds and the stream is considered alive while
// started. The real video never crosses the wire, only decoded codes do.
type RemoteCamera struct {
	mu      sync.Mutex
	started bool
}

// Start marks the stream live.
func (c *RemoteCamera) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return nil
}

// Alive reports whether the stream is live.
func (c *RemoteCamera) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

// Stop releases the stream.
func (c *RemoteCamera) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
}

// Feed is a Decoder fed externally: the front end runs the actual barcode
// decoder and pushes candidate strings over HTTP. Pushes while the feed is
// stopped are dropped, mirroring a decoder that is not running.
type Feed struct {
	mu       sync.Mutex
	onDetect func(code string)
}

// Start begins delivering pushed codes to the callback.
func (f *Feed) Start(onDetect func(code string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDetect = onDetect
	return nil
}

// Stop drops the callback; subsequent pushes are ignored.
func (f *Feed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDetect = nil
}

// Push delivers one decoded candidate. It reports whether a decoder was
// running to receive it.
func (f *Feed) Push(code string) bool {
	f.mu.Lock()
	onDetect := f.onDetect
	f.mu.Unlock()

	if onDetect == nil {
		return false
	}
	onDetect(code)
	return true
}
