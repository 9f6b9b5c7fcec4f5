package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/copperkettle/storefront/pkg/audit"
	"github.com/copperkettle/storefront/pkg/contextkeys"
	"github.com/copperkettle/storefront/pkg/httputil"
	"github.com/copperkettle/storefront/pkg/identity"
	"github.com/copperkettle/storefront/pkg/middleware"
	"github.com/copperkettle/storefront/pkg/observability"
)

// ProfileDirectory is the superadmin view over profiles.
// *identity.ProfileStore satisfies it.
type ProfileDirectory interface {
	Select(ctx context.Context, id string) (*identity.Profile, error)
	Update(ctx context.Context, id string, fields identity.ProfileUpdate) (*identity.Profile, error)
	Tombstone(ctx context.Context, id string) (*identity.Profile, error)
	List(ctx context.Context, limit, offset int) ([]*identity.Profile, error)
}

// AuditSearcher queries recorded audit events. *audit.DBLogger satisfies it.
type AuditSearcher interface {
	Search(ctx context.Context, filter audit.SearchFilter) ([]*audit.Event, error)
}

// AdminHandlers serves the superadmin user directory. The gate guarantees
// every caller here holds the superadmin role.
type AdminHandlers struct {
	profiles    ProfileDirectory
	audit       AuditSink
	auditSearch AuditSearcher
	logger      *observability.Logger
}

// NewAdminHandlers creates the superadmin handlers. auditSink and
// auditSearch may be nil; without a searcher the audit listing is not
// mounted.
func NewAdminHandlers(profiles ProfileDirectory, auditSink AuditSink, auditSearch AuditSearcher, logger *observability.Logger) *AdminHandlers {
	return &AdminHandlers{profiles: profiles, audit: auditSink, auditSearch: auditSearch, logger: logger}
}

// RegisterRoutes mounts the superadmin routes
func (h *AdminHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/superadmin/users", h.listUsers).Methods(http.MethodGet)
	router.HandleFunc("/superadmin/users/{id}", h.getUser).Methods(http.MethodGet)
	router.HandleFunc("/superadmin/users/{id}/approve", h.approveUser).Methods(http.MethodPost)
	router.HandleFunc("/superadmin/users/{id}/role", h.changeRole).Methods(http.MethodPut)
	router.HandleFunc("/superadmin/users/{id}", h.tombstoneUser).Methods(http.MethodDelete)
	if h.auditSearch != nil {
		router.HandleFunc("/superadmin/audit", h.listAuditEvents).Methods(http.MethodGet)
	}
}

// listUsers handles GET /superadmin/users
func (h *AdminHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	limit := httputil.ParseQueryInt(r, "limit", 50)
	offset := httputil.ParseQueryInt(r, "offset", 0)

	profiles, err := h.profiles.List(r.Context(), limit, offset)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to list profiles")
		httputil.WriteInternalError(w, err)
		return
	}
	if profiles == nil {
		profiles = []*identity.Profile{}
	}
	httputil.WriteSuccess(w, profiles)
}

// getUser handles GET /superadmin/users/{id}
func (h *AdminHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	p, err := h.profiles.Select(r.Context(), id)
	if errors.Is(err, identity.ErrProfileNotFound) {
		httputil.WriteNotFound(w, "no such user")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, p)
}

// approveUser handles POST /superadmin/users/{id}/approve. Activating a
// pending admin; the holding page picks the change up on its next poll.
func (h *AdminHandlers) approveUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	approved := true
	p, err := h.profiles.Update(r.Context(), id, identity.ProfileUpdate{Approved: &approved})
	if errors.Is(err, identity.ErrProfileNotFound) {
		httputil.WriteNotFound(w, "no such user")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditPrivilege(r, audit.EventTypeUserApprove, id, "staff account approved")
	httputil.WriteSuccess(w, p)
}

type changeRoleRequest struct {
	Role identity.Role `json:"role"`
}

// changeRole handles PUT /superadmin/users/{id}/role. The deleted role is
// not assignable here; revocation goes through the tombstone endpoint so it
// also anonymizes the row.
func (h *AdminHandlers) changeRole(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var req changeRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !req.Role.Valid() || req.Role == identity.RoleDeleted {
		httputil.WriteBadRequest(w, "role must be one of user, admin, superadmin")
		return
	}

	p, err := h.profiles.Update(r.Context(), id, identity.ProfileUpdate{Role: &req.Role})
	if errors.Is(err, identity.ErrProfileNotFound) {
		httputil.WriteNotFound(w, "no such user")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditPrivilege(r, audit.EventTypeRoleChange, id, "role changed to "+string(req.Role))
	httputil.WriteSuccess(w, p)
}

// tombstoneUser handles DELETE /superadmin/users/{id}. Deletion is a
// one-way role transition, not a row removal; the subject is denied
// everywhere from their next navigation on.
func (h *AdminHandlers) tombstoneUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if actor := middleware.ProfileFrom(r.Context()); actor != nil && actor.ID == id {
		httputil.WriteBadRequest(w, "cannot tombstone your own account")
		return
	}

	p, err := h.profiles.Tombstone(r.Context(), id)
	if errors.Is(err, identity.ErrProfileNotFound) {
		httputil.WriteNotFound(w, "no such user")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditPrivilege(r, audit.EventTypeUserTombstone, id, "account tombstoned")
	httputil.WriteSuccess(w, p)
}

// listAuditEvents handles GET /superadmin/audit. Filters come from query
// parameters; type may repeat.
func (h *AdminHandlers) listAuditEvents(w http.ResponseWriter, r *http.Request) {
	filter := audit.SearchFilter{
		ActorID:  r.URL.Query().Get("actor_id"),
		TargetID: r.URL.Query().Get("target_id"),
		Limit:    httputil.ParseQueryInt(r, "limit", 100),
		Offset:   httputil.ParseQueryInt(r, "offset", 0),
	}
	for _, et := range r.URL.Query()["type"] {
		filter.EventTypes = append(filter.EventTypes, audit.EventType(et))
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := audit.EventStatus(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.StartTime = &ts
	}
	if v := r.URL.Query().Get("until"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteBadRequest(w, "until must be an RFC 3339 timestamp")
			return
		}
		filter.EndTime = &ts
	}

	events, err := h.auditSearch.Search(r.Context(), filter)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to search audit events")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, events)
}

func (h *AdminHandlers) auditPrivilege(r *http.Request, eventType audit.EventType, targetID, message string) {
	if h.audit == nil {
		return
	}
	actorID := ""
	if actor := middleware.ProfileFrom(r.Context()); actor != nil {
		actorID = actor.ID
	}
	err := h.audit.Log(r.Context(), &audit.Event{
		EventType: eventType,
		ActorID:   actorID,
		TargetID:  targetID,
		RequestID: contextkeys.GetRequestID(r.Context()),
		Message:   message,
	})
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to write audit event")
	}
}
