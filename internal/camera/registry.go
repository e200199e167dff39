package camera

// Slots is the fixed number of camera slots
const Slots = 8

// Registry is the fixed slot table plus the current selection. It is not safe
// for concurrent use; Session guards it.
type Registry struct {
	slots   [Slots]*Handle
	current int
}

func validIndex(i int) bool {
	return i >= 0 && i < Slots
}

func (r *Registry) Get(i int) *Handle {
	if !validIndex(i) {
		return nil
	}
	return r.slots[i]
}

func (r *Registry) Current() *Handle {
	return r.slots[r.current]
}

func (r *Registry) CurrentIndex() int {
	return r.current
}

// Install replaces whatever was in slot i. The new handle is active only if
// the slot is the current one, so other slots are never touched.
func (r *Registry) Install(i int, h *Handle) {
	h.Active = i == r.current
	r.slots[i] = h
}

// Switch moves the selection, deactivating the old handle and activating the
// new one when present.
func (r *Registry) Switch(i int) {
	if old := r.slots[r.current]; old != nil {
		old.Active = false
	}
	r.current = i
	if h := r.slots[i]; h != nil {
		h.Active = true
	}
}
