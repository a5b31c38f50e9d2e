package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/coursedesk/coursedesk/internal/platform/httpx"
	"github.com/coursedesk/coursedesk/internal/shared"
)

// Handler exposes the catalog, assignment, and viewer endpoints. Assignment
// dialogs are server side: each session gets at most one editor instance, so
// the single-flight discipline of the workflow holds per operator.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     Middleware

	mu      sync.Mutex
	editors map[string]*Editor
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		rbac:     rbac,
		editors:  make(map[string]*Editor),
	}
}

// MountRoutes registers RBAC routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRoleRead))
		r.Get("/roles/{roleID}", h.getRole)
		r.Get("/roles/{roleID}/permissions", h.getCatalog)
		r.Get("/roles/{roleID}/permissions/view", h.getAssignedView)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermRoleUpdate))
		r.Put("/roles/{roleID}/permissions", h.replacePermissions)
		r.Post("/roles/{roleID}/permissions/editor", h.openEditor)
		r.Get("/permissions/editor", h.editorSnapshot)
		r.Post("/permissions/editor/toggle", h.editorToggle)
		r.Post("/permissions/editor/toggle-resource", h.editorToggleResource)
		r.Post("/permissions/editor/expand", h.editorExpand)
		r.Post("/permissions/editor/save", h.editorSave)
		r.Delete("/permissions/editor", h.editorClose)
	})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	role, err := h.service.Role(r.Context(), roleID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":              role.ID,
		"name":            role.Name,
		"permissionCount": len(role.Permissions),
		"totalUsers":      role.TotalUsers,
	})
}

func (h *Handler) getCatalog(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	catalog, err := h.service.Catalog(r.Context(), roleID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, catalog.ToResponse())
}

func (h *Handler) getAssignedView(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	view, err := h.service.AssignedView(r.Context(), roleID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type grantRequest struct {
	Key        string  `json:"key" validate:"required"`
	FilterType *string `json:"filterType"`
}

type replaceRequest struct {
	Permissions []grantRequest `json:"permissions" validate:"required,min=1,dive"`
}

func (h *Handler) replacePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var req replaceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", ErrEmptySelection.Error())
		return
	}
	grants := make([]Grant, len(req.Permissions))
	for i, g := range req.Permissions {
		grants[i] = Grant{Key: g.Key}
		if g.FilterType != nil {
			grants[i].FilterType = *g.FilterType
		}
	}
	actor, _ := shared.ActorFromSession(shared.SessionFromContext(r.Context()))
	if err := h.service.Replace(r.Context(), roleID, grants, actor.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// editorSource binds the acting user to the service so editor saves carry
// the actor into the audit trail.
type editorSource struct {
	svc   *Service
	actor string
}

func (s editorSource) FetchCatalog(ctx context.Context, roleID int64) (PermissionCatalog, error) {
	return s.svc.Catalog(ctx, roleID)
}

func (s editorSource) ReplacePermissions(ctx context.Context, roleID int64, grants []Grant) error {
	return s.svc.Replace(ctx, roleID, grants, s.actor)
}

// editorFor returns the session's editor, creating it on demand. A session
// without an editor yet only gets one through openEditor.
func (h *Handler) editorFor(r *http.Request, create bool) *Editor {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.ID == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	ed, ok := h.editors[sess.ID]
	if !ok && create {
		actor, _ := shared.ActorFromSession(sess)
		ed = NewEditor(editorSource{svc: h.service, actor: actor.UserID}, h.logger, func(roleID int64) {
			h.logger.Info("role permissions updated", slog.Int64("role_id", roleID))
		})
		h.editors[sess.ID] = ed
	}
	return ed
}

func (h *Handler) openEditor(w http.ResponseWriter, r *http.Request) {
	roleID, ok := h.roleID(w, r)
	if !ok {
		return
	}
	ed := h.editorFor(r, true)
	if ed == nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "no session")
		return
	}
	if err := ed.Open(r.Context(), roleID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.snapshot(ed))
}

func (h *Handler) editorSnapshot(w http.ResponseWriter, r *http.Request) {
	ed := h.editorFor(r, false)
	if ed == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no open editor")
		return
	}
	httpx.JSON(w, http.StatusOK, h.snapshot(ed))
}

type editorKeyRequest struct {
	Key string `json:"key" validate:"required"`
}

func (h *Handler) editorToggle(w http.ResponseWriter, r *http.Request) {
	ed := h.editorFor(r, false)
	if ed == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no open editor")
		return
	}
	var req editorKeyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || h.validate.Struct(req) != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "key is required")
		return
	}
	if err := ed.Toggle(req.Key); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.snapshot(ed))
}

type editorResourceRequest struct {
	Resource string `json:"resource" validate:"required"`
	Expanded *bool  `json:"expanded,omitempty"`
}

func (h *Handler) editorToggleResource(w http.ResponseWriter, r *http.Request) {
	ed := h.editorFor(r, false)
	if ed == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no open editor")
		return
	}
	var req editorResourceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || h.validate.Struct(req) != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "resource is required")
		return
	}
	if err := ed.ToggleResource(req.Resource); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.snapshot(ed))
}

func (h *Handler) editorExpand(w http.ResponseWriter, r *http.Request) {
	ed := h.editorFor(r, false)
	if ed == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no open editor")
		return
	}
	var req editorResourceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || h.validate.Struct(req) != nil || req.Expanded == nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "resource and expanded are required")
		return
	}
	ed.SetExpanded(req.Resource, *req.Expanded)
	httpx.JSON(w, http.StatusOK, h.snapshot(ed))
}

func (h *Handler) editorSave(w http.ResponseWriter, r *http.Request) {
	ed := h.editorFor(r, false)
	if ed == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no open editor")
		return
	}
	if err := ed.Save(r.Context()); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) editorClose(w http.ResponseWriter, r *http.Request) {
	if ed := h.editorFor(r, false); ed != nil {
		ed.Close()
	}
	w.WriteHeader(http.StatusNoContent)
}

type snapshotResource struct {
	Name        string               `json:"name"`
	Label       string               `json:"label"`
	Expanded    bool                 `json:"expanded"`
	Permissions []snapshotPermission `json:"permissions"`
}

type snapshotPermission struct {
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
	Assignable  bool   `json:"assignable"`
	Selected    bool   `json:"selected"`
}

type editorSnapshotResponse struct {
	State     string             `json:"state"`
	RoleID    int64              `json:"roleId,omitempty"`
	Selected  []string           `json:"selected"`
	Resources []snapshotResource `json:"resources"`
}

func (h *Handler) snapshot(ed *Editor) editorSnapshotResponse {
	snap := editorSnapshotResponse{
		State:    ed.State().String(),
		RoleID:   ed.RoleID(),
		Selected: ed.Selection(),
	}
	for _, resource := range ed.Resources() {
		group := snapshotResource{
			Name:     resource,
			Label:    titler.String(resource),
			Expanded: ed.Expanded(resource),
		}
		for _, p := range ed.PermissionsFor(resource) {
			group.Permissions = append(group.Permissions, snapshotPermission{
				Key:         p.Key,
				Description: p.Description,
				Assignable:  p.CanAssignToRole,
				Selected:    ed.IsSelected(p.Key),
			})
		}
		snap.Resources = append(snap.Resources, group)
	}
	return snap
}

func (h *Handler) roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrEmptySelection), errors.Is(err, ErrInvalidKey),
		errors.Is(err, ErrNotAssignable), errors.Is(err, ErrNotReady):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("rbac request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
