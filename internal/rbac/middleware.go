package rbac

import (
	"log/slog"
	"net/http"

	"github.com/coursedesk/coursedesk/internal/shared"
)

// DecisionRecorder counts authorization outcomes, normally backed by the
// Prometheus registry in internal/observability.
type DecisionRecorder interface {
	RecordAuthzDecision(check, outcome string)
}

// Middleware wires RBAC authorization helpers for HTTP handlers. Checks run
// against the session-resident actor only; no request ever triggers a
// permission fetch.
type Middleware struct {
	Logger  *slog.Logger
	Metrics DecisionRecorder
}

// EvaluatorFor builds the evaluator for the request's actor. It returns nil
// when the session carries no resolved role, which denies every check.
func (m Middleware) EvaluatorFor(r *http.Request) *Evaluator {
	sess := shared.SessionFromContext(r.Context())
	actor, ok := shared.ActorFromSession(sess)
	if !ok {
		return nil
	}
	return NewEvaluator(actor.RoleName, actor.Permissions)
}

// RequireAny admits the request when the actor holds at least one of the
// permissions. A group configured with zero permissions passes through: an
// unconfigured route group is a wiring choice, not an authorization grant.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			ev := m.EvaluatorFor(r)
			if ev.HasAnyPermission(perms...) {
				m.record("any", "allow")
				next.ServeHTTP(w, r)
				return
			}
			m.deny(w, r, "any")
		})
	}
}

// RequireAll admits the request only when the actor holds every permission.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			ev := m.EvaluatorFor(r)
			if ev.HasAllPermissions(perms...) {
				m.record("all", "allow")
				next.ServeHTTP(w, r)
				return
			}
			m.deny(w, r, "all")
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, check string) {
	m.record(check, "deny")
	if m.Logger != nil {
		m.Logger.Debug("authorization denied", slog.String("path", r.URL.Path))
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func (m Middleware) record(check, outcome string) {
	if m.Metrics != nil {
		m.Metrics.RecordAuthzDecision(check, outcome)
	}
}
