package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateRendersContentWhenAuthorized(t *testing.T) {
	ev := NewEvaluator("SUPPORT", []string{"payment:READ"})

	got := Gate(ev, CheckKey("payment:READ"), "payment summary", "")
	assert.Equal(t, "payment summary", got)
}

func TestGateRendersFallbackWhenDenied(t *testing.T) {
	ev := NewEvaluator("SUPPORT", []string{"user:READ"})

	got := Gate(ev, CheckKey("payment:READ"), "payment summary", "not available")
	assert.Equal(t, "not available", got)

	// Default fallback is the zero value: the subtree disappears.
	assert.Empty(t, Gate(ev, CheckKey("payment:READ"), "payment summary", ""))
}

func TestGateRequireAllAgainstAdminPanel(t *testing.T) {
	ev := NewEvaluator("SUPPORT", []string{"user:READ"})
	check := Check{Keys: []string{"user:UPDATE", "course:UPDATE"}, RequireAll: true}

	got := Gate(ev, check, "admin panel", "")
	assert.Empty(t, got)
}

func TestWrapHideMode(t *testing.T) {
	ev := NewEvaluator("SUPPORT", []string{"user:READ"})
	ctl := Control{Label: "Delete", OnPress: func(context.Context) error { return nil }}

	_, visible := Wrap(ev, CheckKey("user:DELETE"), ModeHide, ctl)
	assert.False(t, visible)

	shown, visible := Wrap(ev, CheckKey("user:READ"), ModeHide, ctl)
	assert.True(t, visible)
	assert.False(t, shown.Disabled)
}

func TestWrapDisableMode(t *testing.T) {
	pressed := false
	ctl := Control{Label: "Refund", OnPress: func(context.Context) error {
		pressed = true
		return nil
	}}
	ev := NewEvaluator("SUPPORT", []string{"user:READ"})

	gated, visible := Wrap(ev, CheckKey("payment:UPDATE"), ModeDisable, ctl)
	require.True(t, visible)
	assert.True(t, gated.Disabled)
	assert.Equal(t, "Refund", gated.Label)

	// Pressing the inert control never fires the handler and never errors.
	require.NoError(t, gated.Press(context.Background()))
	assert.False(t, pressed)
}

func TestButtonForwardsBehaviorWhenAuthorized(t *testing.T) {
	handlerErr := errors.New("boom")
	ctl := Control{Label: "Publish", Icon: "rocket", OnPress: func(context.Context) error {
		return handlerErr
	}}
	ev := NewEvaluator("INSTRUCTOR", []string{"course:PUBLISH"})

	btn := Button(ev, Check{Keys: []string{"course:PUBLISH"}, RequireAll: true}, ctl)
	assert.False(t, btn.Disabled)
	assert.Equal(t, "rocket", btn.Icon)
	assert.ErrorIs(t, btn.Press(context.Background()), handlerErr)
}

func TestButtonDisabledForNilActor(t *testing.T) {
	ctl := Control{Label: "Publish", OnPress: func(context.Context) error {
		t.Fatal("handler must not fire")
		return nil
	}}

	btn := Button(nil, CheckKey("course:PUBLISH"), ctl)
	assert.True(t, btn.Disabled)
	assert.NoError(t, btn.Press(context.Background()))
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "hide", ModeHide.String())
	assert.Equal(t, "disable", ModeDisable.String())
}
