package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/copperkettle/storefront/pkg/audit"
	"github.com/copperkettle/storefront/pkg/contextkeys"
	"github.com/copperkettle/storefront/pkg/httputil"
	"github.com/copperkettle/storefront/pkg/identity"
	"github.com/copperkettle/storefront/pkg/middleware"
	"github.com/copperkettle/storefront/pkg/observability"
)

// AuthHandlers serves the authentication endpoints
type AuthHandlers struct {
	store         identity.Store
	audit         AuditSink
	logger        *observability.Logger
	sessionTTL    time.Duration
	secureCookies bool
}

// NewAuthHandlers creates the auth handlers. auditSink may be nil.
func NewAuthHandlers(store identity.Store, auditSink AuditSink, logger *observability.Logger,
	sessionTTL time.Duration, secureCookies bool) *AuthHandlers {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthHandlers{
		store:         store,
		audit:         auditSink,
		logger:        logger,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

// RegisterRoutes registers the auth endpoints. All of them live under the
// public /auth prefix; the gate never blocks access to sign-in itself.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth", h.signInPage).Methods(http.MethodGet)
	router.HandleFunc("/auth/signup", h.signUp).Methods(http.MethodPost)
	router.HandleFunc("/auth/signin", h.signIn).Methods(http.MethodPost)
	router.HandleFunc("/auth/signout", h.signOut).Methods(http.MethodPost)
	router.HandleFunc("/auth/session", h.session).Methods(http.MethodGet)
}

// signInPage handles GET /auth, the target of gate redirects. redirectTo is
// echoed back so the client can resume the original navigation after
// signing in.
func (h *AuthHandlers) signInPage(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"sign_in": "/auth/signin",
		"sign_up": "/auth/signup",
	}
	if redirectTo := r.URL.Query().Get("redirectTo"); redirectTo != "" {
		resp["redirect_to"] = redirectTo
	}
	httputil.WriteSuccess(w, resp)
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Staff    bool   `json:"staff"`
}

type sessionResponse struct {
	SubjectID string    `json:"subject_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// signUp handles POST /auth/signup
func (h *AuthHandlers) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		httputil.WriteBadRequest(w, "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		httputil.WriteBadRequest(w, "password must be at least 8 characters")
		return
	}

	sess, err := h.store.SignUp(r.Context(), req.Email, req.Password, req.Staff)
	if errors.Is(err, identity.ErrEmailTaken) {
		httputil.WriteConflict(w, err.Error())
		return
	} else if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("sign-up failed")
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditAuth(r, audit.EventTypeSignUp, audit.EventStatusSuccess, sess.SubjectID, sess.Email)
	h.setSessionCookie(w, sess)
	httputil.WriteCreated(w, sessionResponse{
		SubjectID: sess.SubjectID,
		Email:     sess.Email,
		ExpiresAt: sess.ExpiresAt,
	})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signIn handles POST /auth/signin
func (h *AuthHandlers) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	sess, err := h.store.SignIn(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, identity.ErrSignInThrottled):
		h.auditAuth(r, audit.EventTypeSignInFailed, audit.EventStatusDenied, "", req.Email)
		httputil.WriteTooManyRequests(w, "too many failed attempts, try again later")
		return
	case errors.Is(err, identity.ErrInvalidCredentials):
		h.auditAuth(r, audit.EventTypeSignInFailed, audit.EventStatusFailure, "", req.Email)
		httputil.WriteUnauthorized(w, "invalid email or password")
		return
	case err != nil:
		observability.FromContext(r.Context()).WithError(err).Error("sign-in failed")
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditAuth(r, audit.EventTypeSignIn, audit.EventStatusSuccess, sess.SubjectID, sess.Email)
	h.setSessionCookie(w, sess)
	httputil.WriteSuccess(w, sessionResponse{
		SubjectID: sess.SubjectID,
		Email:     sess.Email,
		ExpiresAt: sess.ExpiresAt,
	})
}

// signOut handles POST /auth/signout. Always clears the cookie, even when
// the token was already gone server-side.
func (h *AuthHandlers) signOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.store.SignOut(r.Context(), cookie.Value); err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("sign-out cleanup failed")
		}
	}
	if sess := middleware.SessionFrom(r.Context()); sess != nil {
		h.auditAuth(r, audit.EventTypeSignOut, audit.EventStatusSuccess, sess.SubjectID, sess.Email)
	}

	h.clearSessionCookie(w)
	httputil.WriteNoContent(w)
}

// session handles GET /auth/session: the caller's own identity snapshot
func (h *AuthHandlers) session(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r.Context())
	prof := middleware.ProfileFrom(r.Context())
	if sess == nil || prof == nil {
		httputil.WriteUnauthorized(w, "not signed in")
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"session": sessionResponse{
			SubjectID: sess.SubjectID,
			Email:     sess.Email,
			ExpiresAt: sess.ExpiresAt,
		},
		"profile": prof,
	})
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, sess *identity.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionTTL),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) auditAuth(r *http.Request, eventType audit.EventType, status audit.EventStatus, subjectID, email string) {
	if h.audit == nil {
		return
	}
	err := h.audit.Log(r.Context(), &audit.Event{
		EventType:  eventType,
		Status:     status,
		ActorID:    subjectID,
		ActorEmail: strings.ToLower(email),
		RequestID:  contextkeys.GetRequestID(r.Context()),
		IPAddress:  r.RemoteAddr,
	})
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to write audit event")
	}
}
