package approval

import (
	"net/http"
	"strconv"
	"time"

	"github.com/copperkettle/storefront/pkg/httputil"
	"github.com/copperkettle/storefront/pkg/identity"
	"github.com/copperkettle/storefront/pkg/middleware"
	"github.com/copperkettle/storefront/pkg/observability"
	"github.com/copperkettle/storefront/pkg/policy"
)

// State classifies a profile for the activation workflow
type State string

const (
	// StateAnonymous covers missing and revoked identities
	StateAnonymous State = "anonymous"
	// StatePending is an admin awaiting superadmin approval
	StatePending State = "pending"
	// StateApproved is activated staff
	StateApproved State = "approved"
	// StateNotStaff is a live identity outside the workflow entirely
	StateNotStaff State = "not_staff"
)

// StateFor classifies p. A nil profile is anonymous.
func StateFor(p *identity.Profile) State {
	switch {
	case p == nil || p.Revoked():
		return StateAnonymous
	case p.PendingApproval():
		return StatePending
	case p.Staff():
		return StateApproved
	default:
		return StateNotStaff
	}
}

// DefaultRetryAfter is how long the holding page tells clients to wait
// between polls.
const DefaultRetryAfter = 15 * time.Second

// Handler serves the holding page. It relies on the request gate having
// resolved the profile for this request, so every poll sees current state.
type Handler struct {
	retryAfter time.Duration
	logger     *observability.Logger
}

// NewHandler creates the holding-page handler. retryAfter <= 0 uses
// DefaultRetryAfter.
func NewHandler(retryAfter time.Duration, logger *observability.Logger) *Handler {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	return &Handler{retryAfter: retryAfter, logger: logger}
}

type statusResponse struct {
	Status            State  `json:"status"`
	Email             string `json:"email,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

// Status handles GET /pending-approval.
//
// Pending admins get the holding payload with a poll interval. Everyone
// else is routed to where they belong: approved staff to the admin area,
// plain users home, anonymous callers to sign-in. Approval is picked up on
// the next poll because the profile is re-resolved per request.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	prof := middleware.ProfileFrom(r.Context())

	switch StateFor(prof) {
	case StatePending:
		w.Header().Set("Retry-After", strconv.Itoa(int(h.retryAfter.Seconds())))
		httputil.WriteJSON(w, http.StatusOK, statusResponse{
			Status:            StatePending,
			Email:             prof.Email,
			RetryAfterSeconds: int(h.retryAfter.Seconds()),
		})
	case StateApproved:
		h.logger.WithField("subject_id", prof.ID).Info("approved staff left holding page")
		http.Redirect(w, r, "/admin", http.StatusFound)
	case StateNotStaff:
		http.Redirect(w, r, policy.HomePath, http.StatusFound)
	default:
		http.Redirect(w, r, policy.SignInPath, http.StatusFound)
	}
}
