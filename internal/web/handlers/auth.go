package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/reunite/portal/internal/config"
	"github.com/reunite/portal/internal/identity"
	"github.com/reunite/portal/internal/web/middleware"
)

// providerSessionCookie is the cookie the hosted sign-in page leaves behind.
const providerSessionCookie = "__session"

const msgSignInFailed = "Sign-in failed. Please try again."

// TokenVerifier checks session tokens issued by the identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*identity.SessionClaims, error)
}

// SessionRevoker ends provider sessions.
type SessionRevoker interface {
	RevokeSession(ctx context.Context, sessionID string) error
}

// AuthHandler handles admin sign-in and sign-out.
type AuthHandler struct {
	config         *config.Config
	sessionManager *middleware.SessionManager
	verifier       TokenVerifier
	revoker        SessionRevoker
	gate           *middleware.Gate
	renderer       *Renderer
}

// NewAuthHandler creates a new auth handler. verifier and revoker may be nil
// when no identity provider is configured.
func NewAuthHandler(cfg *config.Config, sm *middleware.SessionManager, verifier TokenVerifier, revoker SessionRevoker, gate *middleware.Gate, renderer *Renderer) *AuthHandler {
	return &AuthHandler{
		config:         cfg,
		sessionManager: sm,
		verifier:       verifier,
		revoker:        revoker,
		gate:           gate,
		renderer:       renderer,
	}
}

type loginPage struct {
	Base
	Error     string
	SignInURL string
}

// Login renders the sign-in page. An administrator who is already signed in
// goes straight to the dashboard.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session != nil && session.SignedIn() {
		if access, _, err := h.gate.Classify(r.Context(), session); err == nil && access == identity.AccessAdmin {
			http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
			return
		}
	}
	h.renderLogin(w, r, http.StatusOK, "")
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.renderer.Render(w, r, status, "login", loginPage{
		Base:      base(r, "Admin Sign In"),
		Error:     msg,
		SignInURL: h.signInURL(),
	})
}

// signInURL points the hosted sign-in page back at the callback.
func (h *AuthHandler) signInURL() string {
	if h.verifier == nil || h.config.Identity.SignInURL == "" {
		return ""
	}
	u, err := url.Parse(h.config.Identity.SignInURL)
	if err != nil {
		slog.Error("invalid sign-in URL", "error", err)
		return ""
	}
	if h.config.Web.PublicURL != "" {
		q := u.Query()
		q.Set("redirect_url", h.config.Web.PublicURL+"/admin/login/callback")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Callback completes sign-in with the session token handed over by the
// provider, either as a form value or as the provider's session cookie.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		h.renderLogin(w, r, http.StatusUnauthorized, msgSignInFailed)
		return
	}

	token := strings.TrimSpace(r.FormValue("token"))
	if token == "" {
		if c, err := r.Cookie(providerSessionCookie); err == nil {
			token = c.Value
		}
	}

	claims, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		slog.Warn("sign-in rejected", "error", err)
		h.renderLogin(w, r, http.StatusUnauthorized, msgSignInFailed)
		return
	}

	session, err := h.sessionManager.SignIn(r.Context(), middleware.GetSessionFromContext(r.Context()), claims.UserID(), claims.SessionID)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		h.renderLogin(w, r, http.StatusInternalServerError, msgSignInFailed)
		return
	}

	h.sessionManager.SetSessionCookie(w, session)
	slog.Info("admin signed in", "user_id", claims.UserID())
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

// Logout ends the provider session and the portal session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := middleware.GetSessionFromContext(r.Context()); session != nil {
		if session.ProviderSessionID != "" && h.revoker != nil {
			if err := h.revoker.RevokeSession(r.Context(), session.ProviderSessionID); err != nil {
				slog.Warn("failed to revoke provider session", "error", err)
			}
		}
		h.sessionManager.DeleteSession(r.Context(), session.ID)
	}

	h.sessionManager.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
