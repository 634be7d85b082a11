package events_test

import (
	"math"
	"testing"

	buserr "github.com/KirkDiggler/gridbus/internal/errors"
	"github.com/KirkDiggler/gridbus/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallback_VoidIgnoresPayload(t *testing.T) {
	calls := 0
	cb := events.Void("v", func() { calls++ })

	require.NoError(t, cb.Invoke(nil))
	require.NoError(t, cb.Invoke("ignored"))
	assert.Equal(t, 2, calls)
	assert.Equal(t, events.KindsOf(events.KindNone), cb.Kinds())
}

func TestCallback_IntConvertsWidths(t *testing.T) {
	var got []int
	cb := events.Int("i", func(v int) { got = append(got, v) })

	for _, p := range []any{7, int8(-1), int64(1 << 40), uint16(9), cellIndex(5)} {
		require.NoError(t, cb.Invoke(p))
	}
	assert.Equal(t, []int{7, -1, 1 << 40, 9, 5}, got)

	err := cb.Invoke("seven")
	assert.True(t, buserr.IsPayloadKindMismatch(err))
	err = cb.Invoke(nil)
	assert.True(t, buserr.IsPayloadKindMismatch(err))
}

type bigCount uint64

func TestCallback_IntRejectsOverflow(t *testing.T) {
	calls := 0
	cb := events.Int("i", func(int) { calls++ })

	for _, p := range []any{uint64(math.MaxUint64), uint(math.MaxUint), uint64(math.MaxInt) + 1, bigCount(math.MaxUint64)} {
		err := cb.Invoke(p)
		require.Error(t, err)
		assert.True(t, buserr.IsPayloadKindMismatch(err))
	}
	assert.Equal(t, 0, calls)

	require.NoError(t, cb.Invoke(uint64(math.MaxInt)))
	assert.Equal(t, 1, calls)
}

func TestCallback_FloatBoolText(t *testing.T) {
	var f float64
	var b bool
	var s string

	require.NoError(t, events.Float("f", func(v float64) { f = v }).Invoke(float32(0.5)))
	require.NoError(t, events.Bool("b", func(v bool) { b = v }).Invoke(true))
	require.NoError(t, events.Text("s", func(v string) { s = v }).Invoke(tileName("lava")))

	assert.Equal(t, 0.5, f)
	assert.True(t, b)
	assert.Equal(t, "lava", s)

	assert.True(t, buserr.IsPayloadKindMismatch(events.Float("f", func(float64) {}).Invoke(1)))
	assert.True(t, buserr.IsPayloadKindMismatch(events.Bool("b", func(bool) {}).Invoke("true")))
	assert.True(t, buserr.IsPayloadKindMismatch(events.Text("s", func(string) {}).Invoke(nil)))
}

func TestCallback_StructuredDowncast(t *testing.T) {
	var got *hitArgs
	cb := events.Structured("s", func(a *hitArgs) { got = a })

	require.NoError(t, cb.Invoke(&hitArgs{Damage: 6}))
	require.NotNil(t, got)
	assert.Equal(t, 6, got.Damage)

	err := cb.Invoke(&healArgs{Amount: 1})
	require.Error(t, err)
	assert.True(t, buserr.IsPayloadKindMismatch(err))
	assert.Equal(t, "s", buserr.GetMeta(err)["owner"])
}

func onScore(int) {}

func onOtherScore(int) {}

func TestCallback_Identity(t *testing.T) {
	a := events.Int("owner-1", onScore)
	b := events.Int("owner-1", onScore)
	c := events.Float("owner-1", func(float64) {})
	d := events.Int("owner-2", onScore)
	e := events.Int("owner-1", onOtherScore)

	assert.True(t, events.Equal(a, b))
	assert.False(t, events.Equal(a, c))
	assert.False(t, events.Equal(a, d))
	assert.False(t, events.Equal(a, e), "different functions under one owner are different callbacks")
	assert.NotZero(t, a.Identity().Fn)
	assert.True(t, events.Equal(nil, nil))
	assert.False(t, events.Equal(a, nil))

	wrapped, err := events.Wrap(events.KindInteger, "owner-1", onScore)
	require.NoError(t, err)
	assert.True(t, events.Equal(a, wrapped))

	assert.Equal(t, "owner-1[integer]", a.Identity().String())
	assert.Equal(t, "w[*]", events.Any("w", func(any) {}).Identity().String())
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		kind events.PayloadKind
		fn   any
		ok   bool
	}{
		{"void", events.KindNone, func() {}, true},
		{"int", events.KindInteger, func(int) {}, true},
		{"bool", events.KindBoolean, func(bool) {}, true},
		{"float", events.KindFloat, func(float64) {}, true},
		{"text", events.KindText, func(string) {}, true},
		{"structured pointer", events.KindStructured, func(*hitArgs) {}, true},
		{"structured interface", events.KindStructured, func(events.Args) {}, true},
		{"structured not args", events.KindStructured, func(struct{}) {}, false},
		{"wrong signature", events.KindInteger, func(string) {}, false},
		{"returns value", events.KindStructured, func(*hitArgs) error { return nil }, false},
		{"nil", events.KindNone, nil, false},
		{"unknown kind", events.PayloadKind(42), func() {}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, err := events.Wrap(tt.kind, "owner", tt.fn)
			if !tt.ok {
				require.Error(t, err)
				assert.True(t, buserr.IsInvalidArgument(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, events.KindsOf(tt.kind), cb.Kinds())
		})
	}
}

func TestWrap_StructuredInvokesThroughReflection(t *testing.T) {
	var got *hitArgs
	cb, err := events.Wrap(events.KindStructured, "reflect", func(a *hitArgs) { got = a })
	require.NoError(t, err)

	require.NoError(t, cb.Invoke(&hitArgs{Damage: 2}))
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Damage)

	err = cb.Invoke(&healArgs{})
	assert.True(t, buserr.IsPayloadKindMismatch(err))
}
