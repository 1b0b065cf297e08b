package telemetry

// RingHistory is a fixed-capacity FIFO of float64 channel values. Once full,
// each append evicts the oldest entry. Not safe for concurrent use; the
// buffer guards it.
type RingHistory struct {
	data  []float64
	size  int
	head  int // next write position
	count int
}

func NewRingHistory(size int) *RingHistory {
	if size <= 0 {
		size = 1
	}

	return &RingHistory{
		data: make([]float64, size),
		size: size,
	}
}

func (r *RingHistory) Append(v float64) {
	r.data[r.head] = v
	r.head = (r.head + 1) % r.size

	if r.count < r.size {
		r.count++
	}
}

func (r *RingHistory) Len() int {
	return r.count
}

func (r *RingHistory) Cap() int {
	return r.size
}

// Values returns up to n entries in chronological order, oldest first, as a
// fresh slice. n <= 0 returns everything held.
func (r *RingHistory) Values(n int) []float64 {
	if n <= 0 || n > r.count {
		n = r.count
	}

	if n == 0 {
		return nil
	}

	out := make([]float64, n)
	start := (r.head - n + r.size) % r.size

	for i := 0; i < n; i++ {
		out[i] = r.data[(start+i)%r.size]
	}

	return out
}

func (r *RingHistory) Reset() {
	r.head = 0
	r.count = 0
}
