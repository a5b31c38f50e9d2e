package rbac

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// EditorState tracks the assignment dialog lifecycle.
type EditorState int

const (
	// StateIdle means no role is loaded.
	StateIdle EditorState = iota
	// StateLoading means a catalog fetch is in flight.
	StateLoading
	// StateReady means the catalog is loaded and the selection is editable.
	StateReady
	// StateSaving means a persist request is in flight.
	StateSaving
)

// String implements fmt.Stringer.
func (s EditorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSaving:
		return "saving"
	default:
		return "unknown"
	}
}

// CatalogSource abstracts the permission service operations the editor needs.
type CatalogSource interface {
	FetchCatalog(ctx context.Context, roleID int64) (PermissionCatalog, error)
	ReplacePermissions(ctx context.Context, roleID int64, grants []Grant) error
}

// Editor is the stateful administration workflow for one assignment dialog:
// it loads a role's full catalog, tracks the operator's selection, enforces
// the minimum-one-permission rule, and persists a full-replacement update.
//
// Each Open or Close bumps an internal epoch; results of a fetch or save that
// started under an older epoch are discarded instead of applied, so a stale
// response for an abandoned role can never seed the selection.
type Editor struct {
	source  CatalogSource
	logger  *slog.Logger
	onSaved func(roleID int64)

	mu        sync.Mutex
	state     EditorState
	epoch     uint64
	roleID    int64
	catalog   PermissionCatalog
	selection map[string]struct{}
	expanded  map[string]bool
}

// NewEditor constructs an Editor. onSaved, if non-nil, runs after a
// successful save so the caller can invalidate the role detail view.
func NewEditor(source CatalogSource, logger *slog.Logger, onSaved func(roleID int64)) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{source: source, logger: logger, onSaved: onSaved, state: StateIdle}
}

// Open loads the catalog for the given role and seeds the selection from the
// assigned flags. Any selection left over from a previously opened role is
// discarded; every resource group starts expanded.
func (e *Editor) Open(ctx context.Context, roleID int64) error {
	e.mu.Lock()
	e.epoch++
	myEpoch := e.epoch
	e.state = StateLoading
	e.roleID = roleID
	e.catalog = nil
	e.selection = nil
	e.expanded = nil
	e.mu.Unlock()

	catalog, err := e.source.FetchCatalog(ctx, roleID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.epoch != myEpoch {
		// A newer Open or Close superseded this fetch.
		e.logger.Debug("discarding stale catalog fetch", slog.Int64("role_id", roleID))
		return nil
	}
	if err != nil {
		e.state = StateIdle
		return err
	}

	selection := make(map[string]struct{})
	expanded := make(map[string]bool, len(catalog))
	for resource, perms := range catalog {
		expanded[resource] = true
		for _, p := range perms {
			if p.IsAssigned {
				selection[p.Key] = struct{}{}
			}
		}
	}
	e.catalog = catalog
	e.selection = selection
	e.expanded = expanded
	e.state = StateReady
	return nil
}

// Toggle flips membership of a single permission key in the selection. Only
// permissions flagged assignable for the loaded role can be toggled.
func (e *Editor) Toggle(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return ErrNotReady
	}
	perm, ok := e.catalog.Find(key)
	if !ok {
		return ErrNotFound
	}
	if !perm.CanAssignToRole {
		return ErrNotAssignable
	}
	if _, selected := e.selection[key]; selected {
		delete(e.selection, key)
	} else {
		e.selection[key] = struct{}{}
	}
	return nil
}

// ToggleResource selects or deselects every assignable permission in the
// resource group. When all assignable keys are already selected they are
// removed; otherwise the missing ones are added. Non-assignable permissions
// are never touched.
func (e *Editor) ToggleResource(resource string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return ErrNotReady
	}
	perms, ok := e.catalog[resource]
	if !ok {
		return ErrNotFound
	}
	var assignable []string
	allSelected := true
	for _, p := range perms {
		if !p.CanAssignToRole {
			continue
		}
		assignable = append(assignable, p.Key)
		if _, sel := e.selection[p.Key]; !sel {
			allSelected = false
		}
	}
	if len(assignable) == 0 {
		return nil
	}
	for _, key := range assignable {
		if allSelected {
			delete(e.selection, key)
		} else {
			e.selection[key] = struct{}{}
		}
	}
	return nil
}

// Save validates the selection and persists it as a full replacement of the
// role's permission set. An empty selection aborts locally with
// ErrEmptySelection before any request is issued. On failure the editor
// stays Ready with the selection intact so the operator can retry; on
// success the dialog closes back to Idle.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateReady {
		e.mu.Unlock()
		return ErrNotReady
	}
	if len(e.selection) == 0 {
		e.mu.Unlock()
		return ErrEmptySelection
	}
	roleID := e.roleID
	myEpoch := e.epoch
	grants := make([]Grant, 0, len(e.selection))
	for key := range e.selection {
		filter := DefaultFilterType
		if p, ok := e.catalog.Find(key); ok && p.FilterType != "" {
			filter = p.FilterType
		}
		grants = append(grants, Grant{Key: key, FilterType: filter})
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Key < grants[j].Key })
	e.state = StateSaving
	e.mu.Unlock()

	err := e.source.ReplacePermissions(ctx, roleID, grants)

	e.mu.Lock()
	if e.epoch != myEpoch {
		// Dialog was closed or reopened mid-save; the result is not applied.
		e.mu.Unlock()
		return nil
	}
	if err != nil {
		e.state = StateReady
		e.mu.Unlock()
		return err
	}
	e.reset()
	e.mu.Unlock()

	if e.onSaved != nil {
		e.onSaved(roleID)
	}
	return nil
}

// Close discards the selection without persisting anything.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.epoch++
	e.reset()
}

func (e *Editor) reset() {
	e.state = StateIdle
	e.roleID = 0
	e.catalog = nil
	e.selection = nil
	e.expanded = nil
}

// State returns the current lifecycle state.
func (e *Editor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// RoleID returns the role loaded into the editor, zero when idle.
func (e *Editor) RoleID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roleID
}

// Selection returns the currently selected keys in sorted order.
func (e *Editor) Selection() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]string, 0, len(e.selection))
	for key := range e.selection {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// IsSelected reports whether the key is in the current selection.
func (e *Editor) IsSelected(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.selection[key]
	return ok
}

// Resources returns the loaded catalog's resource names in sorted order.
func (e *Editor) Resources() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog.Resources()
}

// PermissionsFor returns the catalog entries of one resource group.
func (e *Editor) PermissionsFor(resource string) []Permission {
	e.mu.Lock()
	defer e.mu.Unlock()
	perms := e.catalog[resource]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// Expanded reports whether a resource group is expanded. Expansion is UI
// state orthogonal to the selection: toggles never reset it.
func (e *Editor) Expanded(resource string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.expanded[resource]
}

// SetExpanded records the expand/collapse state of a resource group.
func (e *Editor) SetExpanded(resource string, expanded bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.expanded == nil {
		return
	}
	e.expanded[resource] = expanded
}
