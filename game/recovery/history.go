package recovery

import (
	"time"

	"github.com/kasuganosora/voxelpilot/game/world"
)

// Sample is one recorded position.
type Sample struct {
	Pos  world.Coord `json:"pos"`
	At   time.Time   `json:"at"`
	Safe bool        `json:"safe"`
}

// History is a fixed-capacity FIFO of samples. Pushing onto a full history
// evicts the oldest sample.
type History struct {
	buf   []Sample
	start int
	n     int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{buf: make([]Sample, capacity)}
}

func (h *History) Len() int { return h.n }
func (h *History) Cap() int { return len(h.buf) }

func (h *History) Push(s Sample) {
	if h.n == len(h.buf) {
		h.buf[h.start] = s
		h.start = (h.start + 1) % len(h.buf)
		return
	}
	h.buf[(h.start+h.n)%len(h.buf)] = s
	h.n++
}

// At returns the i-th sample, oldest first.
func (h *History) At(i int) Sample { return h.buf[(h.start+i)%len(h.buf)] }

// Newest returns the most recent sample.
func (h *History) Newest() (Sample, bool) {
	if h.n == 0 {
		return Sample{}, false
	}
	return h.At(h.n - 1), true
}

// DropOldestWhile removes samples from the old end while drop reports true.
func (h *History) DropOldestWhile(drop func(Sample) bool) int {
	dropped := 0
	for h.n > 0 && drop(h.At(0)) {
		h.start = (h.start + 1) % len(h.buf)
		h.n--
		dropped++
	}
	return dropped
}

// Reverse calls fn from newest to oldest until it returns false.
func (h *History) Reverse(fn func(Sample) bool) {
	for i := h.n - 1; i >= 0; i-- {
		if !fn(h.At(i)) {
			return
		}
	}
}

// Snapshot copies the samples, oldest first.
func (h *History) Snapshot() []Sample {
	out := make([]Sample, h.n)
	for i := range out {
		out[i] = h.At(i)
	}
	return out
}

func (h *History) Clear() { h.start, h.n = 0, 0 }
