package capability

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	buserr "github.com/KirkDiggler/gridbus/internal/errors"
	"github.com/KirkDiggler/gridbus/internal/events"
	"github.com/KirkDiggler/gridbus/internal/uuid"
)

// Handler receives events a descriptor has subscribed to
type Handler interface {
	HandleEvent(key events.Key, payload any)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(key events.Key, payload any)

func (f HandlerFunc) HandleEvent(key events.Key, payload any) { f(key, payload) }

// Pair is one (key, declared kinds) subscription. Empty Kinds is the wildcard pair.
type Pair struct {
	Key   events.Key
	Kinds events.KindSet
}

func (p Pair) String() string {
	return p.Key.String() + "[" + p.Kinds.String() + "]"
}

// Config holds configuration for a descriptor
type Config struct {
	// ID is the identity token owner for every callback the descriptor registers.
	// Generated when empty.
	ID   string
	Name string

	Keys  []events.Key
	Kinds []events.PayloadKind

	// Handler is optional; publish-only descriptors have nothing to subscribe
	Handler Handler

	// Bus is used by Trigger
	Bus *events.Bus

	Reporter    events.Reporter
	IDGenerator uuid.Generator
}

// Descriptor is the allow-list a publisher or subscriber declares for itself.
// It validates requests locally before they reach the bus: the bus only checks
// payload compatibility, the descriptor decides which keys and kinds it will
// emit or receive at all.
type Descriptor struct {
	id   string
	name string

	mu         sync.RWMutex
	keys       []events.Key
	kinds      events.KindSet
	subscribed map[Pair]events.Callback

	handler  Handler
	bus      *events.Bus
	reporter events.Reporter

	emitting atomic.Int32
}

// New creates a descriptor and populates its allowed sets from cfg
func New(cfg *Config) *Descriptor {
	if cfg == nil {
		cfg = &Config{}
	}

	d := &Descriptor{
		id:         cfg.ID,
		name:       cfg.Name,
		subscribed: make(map[Pair]events.Callback),
		handler:    cfg.Handler,
		bus:        cfg.Bus,
		reporter:   cfg.Reporter,
	}

	if d.id == "" {
		gen := cfg.IDGenerator
		if gen == nil {
			gen = uuid.NewGoogleUUIDGenerator()
		}
		d.id = gen.New()
	}
	if d.name == "" {
		d.name = d.id
	}
	if d.reporter == nil {
		d.reporter = events.NewLogReporter("Descriptor "+d.name+": ", events.SeverityInfo)
	}

	for _, k := range cfg.Keys {
		d.DeclareAllowedKey(k)
	}
	for _, k := range cfg.Kinds {
		d.DeclareAllowedPayloadKind(k)
	}

	return d
}

// ID returns the identity token owner used for this descriptor's callbacks
func (d *Descriptor) ID() string { return d.id }

// Name returns the display name
func (d *Descriptor) Name() string { return d.name }

// DeclareAllowedKey adds key to the allowed keys. Declaring twice is a no-op.
func (d *Descriptor) DeclareAllowedKey(key events.Key) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hasKey(key) {
		return
	}
	d.keys = append(d.keys, key)
}

// RemoveAllowedKey removes key from the allowed keys. Existing subscriptions
// stay registered until Deactivate but deliveries for the key are dropped.
func (d *Descriptor) RemoveAllowedKey(key events.Key) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i:i], d.keys[i+1:]...)
			return
		}
	}
}

// DeclareAllowedPayloadKind adds kind to the allowed kinds
func (d *Descriptor) DeclareAllowedPayloadKind(kind events.PayloadKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.kinds = d.kinds.Add(kind)
}

// RemoveAllowedPayloadKind removes kind from the allowed kinds. Removing the
// last kind turns the set back into the wildcard.
func (d *Descriptor) RemoveAllowedPayloadKind(kind events.PayloadKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.kinds = d.kinds.Remove(kind)
}

// AllowedKeys returns the declared keys in declaration order
func (d *Descriptor) AllowedKeys() []events.Key {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]events.Key, len(d.keys))
	copy(out, d.keys)
	return out
}

// AllowedPayloadKinds returns the declared kinds. Empty means any.
func (d *Descriptor) AllowedPayloadKinds() events.KindSet {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.kinds
}

// CanEmit reports whether the descriptor may publish kind under key
func (d *Descriptor) CanEmit(key events.Key, kind events.PayloadKind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.allows(key, kind)
}

// CanReceive reports whether the descriptor accepts kind under key
func (d *Descriptor) CanReceive(key events.Key, kind events.PayloadKind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.allows(key, kind)
}

// allows applies set membership with the empty-set-means-any rule to both sets
func (d *Descriptor) allows(key events.Key, kind events.PayloadKind) bool {
	if len(d.keys) > 0 && !d.hasKey(key) {
		return false
	}
	return d.kinds.Allows(kind)
}

func (d *Descriptor) hasKey(key events.Key) bool {
	for _, k := range d.keys {
		if k == key {
			return true
		}
	}
	return false
}

// pairs expands the declared keys and kinds into subscription pairs
func (d *Descriptor) pairs() []Pair {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var pairs []Pair
	for _, key := range d.keys {
		if d.kinds.Empty() {
			pairs = append(pairs, Pair{Key: key})
			continue
		}
		for _, kind := range d.kinds.Kinds() {
			pairs = append(pairs, Pair{Key: key, Kinds: events.KindsOf(kind)})
		}
	}
	return pairs
}

// Activate subscribes every declared (key, kind) pair that passes CanReceive.
// Each pair is attempted on its own: a pair that is already subscribed is
// reported in the returned error but never stops the remaining pairs. The
// count is the number of pairs newly registered with the bus.
func (d *Descriptor) Activate(bus *events.Bus) (int, error) {
	if bus == nil {
		panic("capability: Activate requires a bus")
	}
	if d.handler == nil {
		d.report(events.SeverityDebug, "no handler, nothing to subscribe")
		return 0, nil
	}

	pairs := d.pairs()
	if len(pairs) == 0 {
		d.report(events.SeverityInfo, "no keys declared, nothing to subscribe")
		return 0, nil
	}

	var errs []error
	subscribed := 0
	for _, p := range pairs {
		if !d.CanReceive(p.Key, pairKind(p)) {
			continue
		}

		cb, err := d.callbackFor(p)
		if err != nil {
			errs = append(errs, buserr.Wrapf(err, "build callback for %s", p))
			continue
		}

		err = bus.Subscribe(p.Key, cb)
		switch {
		case err == nil:
			subscribed++
			d.markSubscribed(p, cb)
		case buserr.IsAlreadySubscribed(err):
			// Registered by an earlier activation; keep tracking it
			d.markSubscribed(p, cb)
			errs = append(errs, err)
		default:
			errs = append(errs, err)
		}
	}

	d.report(events.SeverityDebug, "activated %d of %d pairs", subscribed, len(pairs))
	return subscribed, errors.Join(errs...)
}

// Deactivate unsubscribes every pair marked subscribed and clears its flag.
// The count is the number of callbacks actually removed from the bus.
func (d *Descriptor) Deactivate(bus *events.Bus) (int, error) {
	if bus == nil {
		panic("capability: Deactivate requires a bus")
	}

	d.mu.Lock()
	tracked := make(map[Pair]events.Callback, len(d.subscribed))
	for p, cb := range d.subscribed {
		tracked[p] = cb
	}
	d.mu.Unlock()

	var errs []error
	removed := 0
	for p, cb := range tracked {
		err := bus.Unsubscribe(p.Key, cb)
		if err == nil {
			removed++
		} else {
			errs = append(errs, err)
		}
		if err == nil || buserr.IsNotFound(err) {
			d.mu.Lock()
			delete(d.subscribed, p)
			d.mu.Unlock()
		}
	}

	d.report(events.SeverityDebug, "deactivated %d pairs", removed)
	return removed, errors.Join(errs...)
}

// IsSubscribed reports whether the pair for key and kind (or the key's wildcard pair) is registered
func (d *Descriptor) IsSubscribed(key events.Key, kind events.PayloadKind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.subscribed[Pair{Key: key, Kinds: events.KindsOf(kind)}]; ok {
		return true
	}
	_, ok := d.subscribed[Pair{Key: key}]
	return ok
}

// Subscriptions returns the pairs currently marked subscribed
func (d *Descriptor) Subscriptions() []Pair {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Pair, 0, len(d.subscribed))
	for p := range d.subscribed {
		out = append(out, p)
	}
	return out
}

func (d *Descriptor) markSubscribed(p Pair, cb events.Callback) {
	d.mu.Lock()
	d.subscribed[p] = cb
	d.mu.Unlock()
}

// callbackFor builds the typed callback for a pair. Every callback forwards to
// the handler through deliver so the allow-list is checked again on receipt.
func (d *Descriptor) callbackFor(p Pair) (events.Callback, error) {
	key := p.Key
	if p.Kinds.Empty() {
		return events.Any(d.id, func(v any) {
			d.deliver(key, events.ClassifyRuntimePayload(v), v)
		}), nil
	}

	kind := pairKind(p)
	var fn any
	switch kind {
	case events.KindNone:
		fn = func() { d.deliver(key, kind, nil) }
	case events.KindInteger:
		fn = func(v int) { d.deliver(key, kind, v) }
	case events.KindBoolean:
		fn = func(v bool) { d.deliver(key, kind, v) }
	case events.KindFloat:
		fn = func(v float64) { d.deliver(key, kind, v) }
	case events.KindText:
		fn = func(v string) { d.deliver(key, kind, v) }
	case events.KindStructured:
		fn = func(v events.Args) { d.deliver(key, kind, v) }
	}
	return events.Wrap(kind, d.id, fn)
}

func (d *Descriptor) deliver(key events.Key, kind events.PayloadKind, payload any) {
	if !d.CanReceive(key, kind) {
		d.report(events.SeverityDebug, "dropped %s (%s): not allowed to receive", key, kind)
		return
	}
	d.handler.HandleEvent(key, payload)
}

// pairKind returns the single kind of a pair, or none for the wildcard pair
func pairKind(p Pair) events.PayloadKind {
	kinds := p.Kinds.Kinds()
	if len(kinds) == 0 {
		return events.KindNone
	}
	return kinds[0]
}

// Emit publishes payload under key if the descriptor may emit it. A refused
// emit returns NotAllowed without touching the bus.
func (d *Descriptor) Emit(bus *events.Bus, key events.Key, payload any) (events.Result, error) {
	if bus == nil {
		panic("capability: Emit requires a bus")
	}

	kind := events.ClassifyRuntimePayload(payload)
	if !d.CanEmit(key, kind) {
		err := buserr.NotAllowedf("%s may not emit %s with %s payload", d.name, key, kind).
			WithMeta("key", key.String()).
			WithMeta("kind", kind.String())
		d.report(events.SeverityInfo, "%v", err)
		return events.Result{Key: key, Kind: kind}, err
	}

	if kind == events.KindNone {
		return bus.PublishVoid(key)
	}
	return bus.Publish(key, payload)
}

// EmitVoid publishes key with no payload
func (d *Descriptor) EmitVoid(bus *events.Bus, key events.Key) (events.Result, error) {
	return d.Emit(bus, key, nil)
}

// Trigger emits on the configured bus. IsEmitting reports true for the
// duration, including nested triggers from inside callbacks. It is a
// diagnostic flag, not a lock.
func (d *Descriptor) Trigger(key events.Key, payload any) (events.Result, error) {
	if d.bus == nil {
		panic(fmt.Sprintf("capability: descriptor %s has no bus to trigger on", d.name))
	}

	d.emitting.Add(1)
	defer d.emitting.Add(-1)

	return d.Emit(d.bus, key, payload)
}

// TriggerVoid triggers key with no payload
func (d *Descriptor) TriggerVoid(key events.Key) (events.Result, error) {
	return d.Trigger(key, nil)
}

// IsEmitting reports whether a Trigger is in progress
func (d *Descriptor) IsEmitting() bool {
	return d.emitting.Load() > 0
}

func (d *Descriptor) report(severity events.Severity, format string, args ...any) {
	d.reporter.Report(severity, fmt.Sprintf(format, args...))
}
