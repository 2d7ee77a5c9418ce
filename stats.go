package canbridge

import (
	"fmt"
	"sync"
	"time"
)

// Stats counts what the pipeline has seen.
type Stats struct {
	mu sync.Mutex
	s  StatsSnapshot
}

type StatsSnapshot struct {
	RX         uint64
	TX         uint64
	Errors     uint64
	Info       uint64
	Suppressed uint64
	Filtered   uint64
	Paused     uint64
	Decoded    uint64
	Undecoded  uint64
	Start      time.Time
}

func NewStats() *Stats {
	return &Stats{s: StatsSnapshot{Start: time.Now()}}
}

func (st *Stats) update(fn func(s *StatsSnapshot)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
}

func (st *Stats) envelope(k Kind) {
	st.update(func(s *StatsSnapshot) {
		switch k {
		case KindRX:
			s.RX++
		case KindTX:
			s.TX++
		case KindError:
			s.Errors++
		case KindInfo:
			s.Info++
		}
	})
}

func (st *Stats) Snapshot() StatsSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.s
}

func (st *Stats) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s = StatsSnapshot{Start: time.Now()}
}

// Total is the number of envelopes produced.
func (s StatsSnapshot) Total() uint64 {
	return s.RX + s.TX + s.Errors + s.Info
}

// Rate is envelopes per second since Start.
func (s StatsSnapshot) Rate(now time.Time) float64 {
	elapsed := now.Sub(s.Start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Total()) / elapsed
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("rx: %d tx: %d errors: %d info: %d decoded: %d undecoded: %d suppressed: %d",
		s.RX, s.TX, s.Errors, s.Info, s.Decoded, s.Undecoded, s.Suppressed)
}
