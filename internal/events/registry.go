package events

// keyedRegistry is the variant-independent view the bus uses once it has
// resolved which registry owns a key
type keyedRegistry interface {
	add(key Key, cb Callback) bool
	remove(key Key, cb Callback) bool
	snapshot(key Key) []Callback
	count(key Key) int
	keys() []Key
}

// registry maps the native value of one key variant to its callback list.
// Lists keep insertion order and never hold two equal callbacks.
type registry[K comparable] struct {
	lists  map[K][]Callback
	native func(Key) (K, bool)
	wrap   func(K) Key
}

func newRegistry[K comparable](native func(Key) (K, bool), wrap func(K) Key) *registry[K] {
	return &registry[K]{
		lists:  make(map[K][]Callback),
		native: native,
		wrap:   wrap,
	}
}

func (r *registry[K]) add(key Key, cb Callback) bool {
	k, ok := r.native(key)
	if !ok {
		return false
	}

	list := r.lists[k]
	for _, existing := range list {
		if Equal(existing, cb) {
			return false
		}
	}
	r.lists[k] = append(list, cb)
	return true
}

func (r *registry[K]) remove(key Key, cb Callback) bool {
	k, ok := r.native(key)
	if !ok {
		return false
	}

	list := r.lists[k]
	for i, existing := range list {
		if !Equal(existing, cb) {
			continue
		}
		// Copy so snapshots handed out earlier stay intact
		next := make([]Callback, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(r.lists, k)
		} else {
			r.lists[k] = next
		}
		return true
	}
	return false
}

func (r *registry[K]) snapshot(key Key) []Callback {
	k, ok := r.native(key)
	if !ok {
		return nil
	}

	list := r.lists[k]
	if len(list) == 0 {
		return nil
	}
	out := make([]Callback, len(list))
	copy(out, list)
	return out
}

func (r *registry[K]) count(key Key) int {
	k, ok := r.native(key)
	if !ok {
		return 0
	}
	return len(r.lists[k])
}

func (r *registry[K]) keys() []Key {
	keys := make([]Key, 0, len(r.lists))
	for k := range r.lists {
		keys = append(keys, r.wrap(k))
	}
	return keys
}
