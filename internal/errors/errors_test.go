package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	buserr "github.com/KirkDiggler/gridbus/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := buserr.NotFoundf("callback %s not registered", "hud").WithMeta("key", "LevelStart")
	wrapped := buserr.Wrap(base, "unsubscribe")

	assert.Equal(t, buserr.CodeNotFound, wrapped.Code)
	assert.Equal(t, "unsubscribe: callback hud not registered", wrapped.Error())
	assert.Equal(t, "LevelStart", buserr.GetMeta(wrapped)["key"])
	assert.True(t, stderrors.Is(wrapped, base))

	// Meta is copied, not shared
	wrapped.WithMeta("key", "other")
	assert.Equal(t, "LevelStart", base.Meta["key"])
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, buserr.Wrap(nil, "x"))
	assert.Nil(t, buserr.Wrapf(nil, "x %d", 1))
	assert.Nil(t, buserr.WrapWithCode(nil, buserr.CodeInternal, "x"))
}

func TestWrapPlainError(t *testing.T) {
	wrapped := buserr.Wrapf(stderrors.New("redis down"), "flush %d keys", 2)
	assert.Equal(t, buserr.CodeUnknown, wrapped.Code)
	assert.Equal(t, "flush 2 keys: redis down", wrapped.Error())

	coded := buserr.WrapWithCode(stderrors.New("redis down"), buserr.CodeInternal, "flush")
	assert.Equal(t, buserr.CodeInternal, buserr.GetCode(coded))
}

func TestIsSearchesChains(t *testing.T) {
	notAllowed := buserr.NotAllowedf("cannot emit %s", "LevelStart")

	assert.True(t, buserr.IsNotAllowed(notAllowed))
	assert.True(t, buserr.IsNotAllowed(fmt.Errorf("emit: %w", notAllowed)))
	assert.False(t, buserr.IsNotFound(notAllowed))
	assert.False(t, buserr.IsNotAllowed(nil))

	joined := stderrors.Join(buserr.AlreadySubscribedf("a"), buserr.HandlerPanicf("b"))
	assert.True(t, buserr.IsAlreadySubscribed(joined))
	assert.True(t, buserr.IsHandlerPanic(joined))
	assert.False(t, buserr.IsPayloadKindMismatch(joined))

	assert.True(t, buserr.IsUnsupportedKeyVariant(buserr.UnsupportedKeyVariantf("invalid")))
	assert.True(t, buserr.IsPayloadKindMismatch(buserr.PayloadKindMismatchf("want int")))
	assert.True(t, buserr.IsInvalidArgument(buserr.InvalidArgumentf("nil %s", "callback")))
}

func TestIsInformational(t *testing.T) {
	assert.True(t, buserr.IsInformational(nil))
	assert.True(t, buserr.IsInformational(buserr.AlreadySubscribedf("dup")))
	assert.True(t, buserr.IsInformational(buserr.NotFoundf("gone")))
	assert.True(t, buserr.IsInformational(stderrors.Join(
		buserr.AlreadySubscribedf("a"),
		buserr.NotFoundf("b"),
	)))

	assert.False(t, buserr.IsInformational(buserr.NotAllowedf("no")))
	assert.False(t, buserr.IsInformational(stderrors.New("plain")))
	assert.False(t, buserr.IsInformational(stderrors.Join(
		buserr.AlreadySubscribedf("a"),
		buserr.Internalf("b"),
	)))
}

func TestGetCodeUnknown(t *testing.T) {
	assert.Equal(t, buserr.CodeUnknown, buserr.GetCode(stderrors.New("plain")))
	assert.Nil(t, buserr.GetMeta(stderrors.New("plain")))
}
