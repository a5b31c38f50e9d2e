package rbac

import "context"

// Mode selects how a Wrapper treats unauthorized actors.
type Mode int

const (
	// ModeHide omits the wrapped control entirely.
	ModeHide Mode = iota
	// ModeDisable keeps the control visible but strips its interactivity.
	ModeDisable
)

// String implements fmt.Stringer for logging.
func (m Mode) String() string {
	switch m {
	case ModeHide:
		return "hide"
	case ModeDisable:
		return "disable"
	default:
		return "unknown"
	}
}

// Check describes an authorization requirement: a set of permission keys
// evaluated disjunctively by default, or conjunctively when RequireAll is set.
type Check struct {
	Keys       []string
	RequireAll bool
}

// CheckKey is shorthand for a single-key requirement.
func CheckKey(key string) Check {
	return Check{Keys: []string{key}}
}

// Allowed evaluates the check against the actor. The semantics follow the
// evaluator exactly: an empty any-of check denies, an empty all-of check
// passes.
func (c Check) Allowed(ev *Evaluator) bool {
	if c.RequireAll {
		return ev.HasAllPermissions(c.Keys...)
	}
	return ev.HasAnyPermission(c.Keys...)
}

// Gate returns content when the actor passes the check, otherwise fallback.
// The zero fallback hides the subtree entirely.
func Gate[T any](ev *Evaluator, c Check, content, fallback T) T {
	if c.Allowed(ev) {
		return content
	}
	return fallback
}

// Control is an interactive element whose behavior can be stripped by a
// Wrapper or Button. A disabled control is inert: Press never invokes the
// handler.
type Control struct {
	Label    string
	Icon     string
	Disabled bool
	OnPress  func(context.Context) error
}

// Press invokes the control's handler. Pressing a disabled control, or one
// without a handler, is a no-op rather than an error: an unauthorized actor
// simply never observes the gated effect.
func (c Control) Press(ctx context.Context) error {
	if c.Disabled || c.OnPress == nil {
		return nil
	}
	return c.OnPress(ctx)
}

// Wrap applies mode-based gating to a control. In hide mode a denied control
// is omitted (visible is false). In disable mode the control is always
// returned but denied actors receive it inert with its handler removed.
func Wrap(ev *Evaluator, c Check, mode Mode, ctl Control) (Control, bool) {
	if c.Allowed(ev) {
		return ctl, true
	}
	if mode == ModeHide {
		return Control{}, false
	}
	ctl.Disabled = true
	ctl.OnPress = nil
	return ctl, true
}

// Button is the disable-mode convenience for a single actionable control:
// the control keeps its label and icon either way, and forwards its handler
// only when the actor is authorized.
func Button(ev *Evaluator, c Check, ctl Control) Control {
	gated, _ := Wrap(ev, c, ModeDisable, ctl)
	return gated
}
