package events

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	buserr "github.com/KirkDiggler/gridbus/internal/errors"
)

// Bus maps event keys to ordered callback lists and dispatches published
// payloads synchronously, in registration order, to every callback whose
// declared kinds accept the payload.
//
// The bus only enforces payload compatibility. Whether a producer or consumer
// may talk about a key at all is decided by capability descriptors.
//
// The registries are guarded so callbacks may subscribe, unsubscribe or publish
// re-entrantly, but ordering across goroutines is the caller's concern.
type Bus struct {
	mu       sync.RWMutex
	integers *registry[int64]
	texts    *registry[string]
	symbols  *registry[Symbol]

	reporter Reporter
	observer Observer
}

// Option configures a Bus
type Option func(*Bus)

// WithReporter sets the diagnostics sink
func WithReporter(r Reporter) Option {
	return func(b *Bus) {
		if r != nil {
			b.reporter = r
		}
	}
}

// WithObserver sets an observer notified after every dispatch
func WithObserver(o Observer) Option {
	return func(b *Bus) {
		b.observer = o
	}
}

// NewBus creates a new event bus
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		reporter: NewLogReporter("EventBus: ", SeverityInfo),
	}
	b.reset()
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) reset() {
	b.integers = newRegistry(func(k Key) (int64, bool) { return k.Int() }, IntKey)
	b.texts = newRegistry(func(k Key) (string, bool) { return k.Text() }, TextKey)
	b.symbols = newRegistry(func(k Key) (Symbol, bool) { return k.Symbol() }, func(s Symbol) Key {
		return QualifiedSymbolKey(s.Pkg, s.Type, s.Member)
	})
}

// registryFor resolves the registry that owns the key's variant
func (b *Bus) registryFor(key Key) (keyedRegistry, error) {
	switch key.Variant() {
	case VariantInteger:
		return b.integers, nil
	case VariantText:
		return b.texts, nil
	case VariantSymbol:
		return b.symbols, nil
	default:
		return nil, buserr.UnsupportedKeyVariantf("key variant %s is not supported", key.Variant()).
			WithMeta("variant", key.Variant().String())
	}
}

// Subscribe appends cb to the list for key. An equal callback already present
// is not added again and AlreadySubscribed is returned; callers batching
// several subscriptions should treat that as informational.
func (b *Bus) Subscribe(key Key, cb Callback) error {
	if cb == nil {
		return buserr.InvalidArgument("callback cannot be nil")
	}

	b.mu.Lock()
	reg, err := b.registryFor(key)
	if err != nil {
		b.mu.Unlock()
		b.report(SeverityWarn, "Subscribe %s to %s: %v", cb.Identity(), key, err)
		return err
	}
	added := reg.add(key, cb)
	b.mu.Unlock()

	if !added {
		b.report(SeverityInfo, "Callback %s already subscribed to %s", cb.Identity(), key)
		return buserr.AlreadySubscribedf("callback %s already subscribed to %s", cb.Identity(), key).
			WithMeta("key", key.String())
	}

	b.report(SeverityDebug, "Subscribed callback %s to event %s", cb.Identity(), key)
	return nil
}

// Unsubscribe removes the first callback equal to cb from the list for key
func (b *Bus) Unsubscribe(key Key, cb Callback) error {
	if cb == nil {
		return buserr.InvalidArgument("callback cannot be nil")
	}

	b.mu.Lock()
	reg, err := b.registryFor(key)
	if err != nil {
		b.mu.Unlock()
		b.report(SeverityWarn, "Unsubscribe %s from %s: %v", cb.Identity(), key, err)
		return err
	}
	removed := reg.remove(key, cb)
	b.mu.Unlock()

	if !removed {
		b.report(SeverityInfo, "Callback %s not subscribed to %s", cb.Identity(), key)
		return buserr.NotFoundf("callback %s not subscribed to %s", cb.Identity(), key).
			WithMeta("key", key.String())
	}

	b.report(SeverityDebug, "Unsubscribed callback %s from event %s", cb.Identity(), key)
	return nil
}

// PublishVoid dispatches to callbacks declared for no payload (and wildcards).
// Callbacks declared for other kinds under the same key are skipped.
func (b *Bus) PublishVoid(key Key) (Result, error) {
	return b.dispatch(key, KindNone, nil)
}

// Publish classifies payload and dispatches it to every compatible callback
// registered under key. One callback's failure never stops delivery to the
// rest; failures are collected in the result. The returned error is only set
// when the key variant is unsupported.
func (b *Bus) Publish(key Key, payload any) (Result, error) {
	return b.dispatch(key, ClassifyRuntimePayload(payload), payload)
}

func (b *Bus) dispatch(key Key, kind PayloadKind, payload any) (Result, error) {
	result := Result{Key: key, Kind: kind}

	b.mu.RLock()
	reg, err := b.registryFor(key)
	if err != nil {
		b.mu.RUnlock()
		b.report(SeverityWarn, "Publish to %s: %v", key, err)
		return result, err
	}
	// Callbacks added during dispatch are not part of this pass
	callbacks := reg.snapshot(key)
	b.mu.RUnlock()

	b.report(SeverityDebug, "Emitting event %s (%s) with %d callbacks", key, kind, len(callbacks))

	for _, cb := range callbacks {
		if !cb.Kinds().Accepts(kind, payload) {
			result.Skipped++
			continue
		}

		result.Invoked++
		if err := cb.Invoke(payload); err != nil {
			dispatchErr := &DispatchError{Key: key, Owner: cb.Identity(), Err: err}
			result.Errors = append(result.Errors, dispatchErr)
			b.report(SeverityWarn, "%v", dispatchErr)
		}
	}

	if b.observer != nil {
		b.observer.ObserveDispatch(result)
	}

	return result, nil
}

// HasSubscribers reports whether any callback is registered under key
func (b *Bus) HasSubscribers(key Key) bool {
	return b.SubscriberCount(key) > 0
}

// SubscriberCount returns the number of callbacks registered under key
func (b *Bus) SubscriberCount(key Key) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	reg, err := b.registryFor(key)
	if err != nil {
		return 0
	}
	return reg.count(key)
}

// Keys returns every key with at least one callback, integers first, then text, then symbols
func (b *Bus) Keys() []Key {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var keys []Key
	for _, reg := range []keyedRegistry{b.integers, b.texts, b.symbols} {
		keys = append(keys, reg.keys()...)
	}
	slices.SortStableFunc(keys, func(a, c Key) int {
		if a.Variant() != c.Variant() {
			return cmp.Compare(a.Variant(), c.Variant())
		}
		if ai, ok := a.Int(); ok {
			ci, _ := c.Int()
			return cmp.Compare(ai, ci)
		}
		return cmp.Compare(a.Qualified(), c.Qualified())
	})
	return keys
}

// Clear removes all callbacks from every registry
func (b *Bus) Clear() {
	b.mu.Lock()
	b.reset()
	b.mu.Unlock()

	b.report(SeverityInfo, "Cleared all callbacks")
}

func (b *Bus) report(severity Severity, format string, args ...any) {
	b.reporter.Report(severity, fmt.Sprintf(format, args...))
}
