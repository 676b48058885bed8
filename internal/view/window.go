package view

import "github.com/lmoreira/courier/internal/store"

// PageSize is how many messages each load step adds to an open
// conversation's window.
const PageSize = 20

// Window is the client-side pagination state for one open
// conversation: a cumulative count of the most recent messages to
// show. It only ever grows.
type Window struct {
	size int
}

// NewWindow returns the initial window over a history of total messages.
func NewWindow(total int) Window {
	return Window{size: min(PageSize, total)}
}

// Size returns the current window size.
func (w Window) Size() int {
	return w.size
}

// Grow extends the window by PageSize, capped at total. It never
// shrinks, even when total is smaller than the current size.
func (w Window) Grow(total int) Window {
	size := w.size + PageSize
	if size > total {
		size = total
	}
	if size < w.size {
		size = w.size
	}
	return Window{size: size}
}

// Slice returns the most recent messages covered by the window.
func (w Window) Slice(msgs []store.Message) []store.Message {
	if w.size >= len(msgs) {
		return msgs
	}
	return msgs[len(msgs)-w.size:]
}
