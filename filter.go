package canbridge

import (
	"sync"

	"github.com/roffe/canbridge/pkg/canid"
)

// Filter selects envelopes by kind and, for frames, by CAN id. An empty id
// list lets every id through.
type Filter struct {
	mu         sync.RWMutex
	showRX     bool
	showTX     bool
	showErrors bool
	showInfo   bool
	ids        []uint32
}

func NewFilter() *Filter {
	return &Filter{showRX: true, showTX: true, showErrors: true, showInfo: true}
}

// Show toggles a kind on or off.
func (f *Filter) Show(k Kind, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch k {
	case KindRX:
		f.showRX = on
	case KindTX:
		f.showTX = on
	case KindError:
		f.showErrors = on
	case KindInfo:
		f.showInfo = on
	}
}

// Add returns false when id is already present.
func (f *Filter) Add(id uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.ids {
		if v == id {
			return false
		}
	}
	f.ids = append(f.ids, id)
	return true
}

func (f *Filter) Remove(id uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range f.ids {
		if v == id {
			f.ids = append(f.ids[:i], f.ids[i+1:]...)
			return true
		}
	}
	return false
}

func (f *Filter) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = nil
}

func (f *Filter) HasIDs() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids) > 0
}

// Active lists the id filters as 0x hex.
func (f *Filter) Active() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.ids))
	for _, id := range f.ids {
		out = append(out, canid.Format(id))
	}
	return out
}

func (f *Filter) Matches(env *Envelope) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	switch env.Kind() {
	case KindRX:
		if !f.showRX {
			return false
		}
	case KindTX:
		if !f.showTX {
			return false
		}
	case KindError:
		if !f.showErrors {
			return false
		}
	case KindInfo:
		if !f.showInfo {
			return false
		}
	}
	id, ok := env.ID()
	if !ok || len(f.ids) == 0 {
		return true
	}
	for _, v := range f.ids {
		if v == id {
			return true
		}
	}
	return false
}
