package mask

// DefaultHistoryCapacity is the free-paint undo depth.
const DefaultHistoryCapacity = 30

// History is an undo log of pre-edit snapshots. Entries below the floor are
// never popped, so a seeded original cannot be undone away.
type History struct {
	entries  []Snapshot
	capacity int
	floor    int
}

// NewHistory creates a log holding at most capacity entries, evicting the
// oldest when full. capacity 0 means unbounded.
func NewHistory(capacity, floor int) *History {
	if capacity < 0 {
		capacity = 0
	}
	if floor < 0 {
		floor = 0
	}
	return &History{capacity: capacity, floor: floor}
}

// Push records snap as the newest entry.
func (h *History) Push(snap Snapshot) {
	h.entries = append(h.entries, snap)
	if h.capacity > 0 && len(h.entries) > h.capacity {
		drop := len(h.entries) - h.capacity
		copy(h.entries, h.entries[drop:])
		for i := len(h.entries) - drop; i < len(h.entries); i++ {
			h.entries[i] = Snapshot{}
		}
		h.entries = h.entries[:h.capacity]
	}
}

// Pop removes and returns the newest entry. It reports false, leaving the
// log untouched, when only floor entries remain.
func (h *History) Pop() (Snapshot, bool) {
	if len(h.entries) <= h.floor {
		return Snapshot{}, false
	}
	last := h.entries[len(h.entries)-1]
	h.entries[len(h.entries)-1] = Snapshot{}
	h.entries = h.entries[:len(h.entries)-1]
	return last, true
}

// Peek returns the newest entry without removing it.
func (h *History) Peek() (Snapshot, bool) {
	if len(h.entries) == 0 {
		return Snapshot{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Len returns the number of entries including the floor.
func (h *History) Len() int { return len(h.entries) }

// Floor returns the number of entries Pop never removes.
func (h *History) Floor() int { return h.floor }

// Reset drops every entry.
func (h *History) Reset() {
	clear(h.entries)
	h.entries = h.entries[:0]
}
