package stats

// Window is a fixed-capacity ring of the most recent power values. The
// backing array is allocated once; at capacity a push overwrites the oldest
// value.
type Window struct {
	buf   []float64
	start int
	size  int
}

// NewWindow returns an empty window. It panics if capacity is below one.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		panic("stats: window capacity must be at least 1")
	}

	return &Window{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest value when the window is full
func (w *Window) Push(v float64) {
	capacity := len(w.buf)
	if w.size < capacity {
		w.buf[(w.start+w.size)%capacity] = v
		w.size++
		return
	}

	w.buf[w.start] = v
	w.start = (w.start + 1) % capacity
}

// Values returns a copy of the window contents, oldest first
func (w *Window) Values() []float64 {
	out := make([]float64, w.size)
	for i := range out {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}

	return out
}

// Last returns the most recently pushed value
func (w *Window) Last() (float64, bool) {
	if w.size == 0 {
		return 0, false
	}

	return w.buf[(w.start+w.size-1)%len(w.buf)], true
}

func (w *Window) Len() int { return w.size }
func (w *Window) Cap() int { return len(w.buf) }
