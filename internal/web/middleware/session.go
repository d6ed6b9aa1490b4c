package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/reunite/portal/internal/metrics"
)

const (
	sessionCookieName      = "reunite_session"
	sessionDuration        = 24 * time.Hour
	visitorSessionDuration = 2 * time.Hour
	defaultMaxVisitors     = 5000
	cleanupInterval        = 10 * time.Minute
)

// Session is one visitor's portal session. Every visitor gets one; a signed-in
// administrator's session additionally carries the provider user and session ids.
type Session struct {
	ID                string
	UserID            string // provider user id, empty for anonymous visitors
	ProviderSessionID string // provider session used to mint backend credentials
	CreatedAt         time.Time
	ExpiresAt         time.Time

	mu     sync.Mutex
	values map[string]any
	notice string
}

// SignedIn reports whether the session belongs to a provider user.
func (s *Session) SignedIn() bool {
	return s.UserID != ""
}

// Value returns the view state stored under key, creating it with create on first use.
func (s *Session) Value(key string, create func() any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	if s.values == nil {
		s.values = make(map[string]any)
	}
	v := create()
	s.values[key] = v
	return v
}

// SetNotice stores a message shown once on the next rendered page.
func (s *Session) SetNotice(msg string) {
	s.mu.Lock()
	s.notice = msg
	s.mu.Unlock()
}

// PopNotice returns and clears the pending notice.
func (s *Session) PopNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.notice
	s.notice = ""
	return msg
}

// StoredSession is the persisted part of a session.
type StoredSession struct {
	ID                string
	UserID            string
	ProviderSessionID string
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

// SessionRepository persists signed-in sessions across restarts.
type SessionRepository interface {
	Save(ctx context.Context, s StoredSession) error
	Get(ctx context.Context, id string) (*StoredSession, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// SessionManager handles session creation and validation.
// Anonymous visitor sessions expire after two hours and are capped in number;
// when the cap is reached the visitor session closest to expiry is evicted.
type SessionManager struct {
	secret      []byte
	repo        SessionRepository
	secure      bool
	sessions    map[string]*Session
	visitors    int
	maxVisitors int
	mu          sync.RWMutex
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewSessionManager creates a session manager. repo may be nil for in-memory only.
func NewSessionManager(secret string, repo SessionRepository) *SessionManager {
	// Use a default secret if none provided (for development)
	if secret == "" {
		secret = "reunite-dev-secret-change-in-production"
	}
	sm := &SessionManager{
		secret:      []byte(secret),
		repo:        repo,
		sessions:    make(map[string]*Session),
		maxVisitors: defaultMaxVisitors,
		stop:        make(chan struct{}),
	}
	go sm.cleanupLoop()
	return sm
}

// SetSecureCookies marks cookies Secure, for portals served over HTTPS.
func (sm *SessionManager) SetSecureCookies(secure bool) {
	sm.secure = secure
}

// SetMaxVisitorSessions caps the number of anonymous sessions held in memory.
// Non-positive values keep the current cap.
func (sm *SessionManager) SetMaxVisitorSessions(n int) {
	if n <= 0 {
		return
	}
	sm.mu.Lock()
	sm.maxVisitors = n
	sm.mu.Unlock()
}

// Stop ends the background cleanup.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stop) })
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sm.stop:
			return
		case <-ticker.C:
			sm.cleanup()
		}
	}
}

func (sm *SessionManager) cleanup() {
	now := time.Now()
	sm.mu.Lock()
	for id, s := range sm.sessions {
		if now.After(s.ExpiresAt) {
			sm.removeLocked(id)
		}
	}
	active := len(sm.sessions)
	sm.mu.Unlock()
	metrics.ActiveSessions.Set(float64(active))

	if sm.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if n, err := sm.repo.DeleteExpired(ctx); err != nil {
			slog.Warn("failed to delete expired sessions", "error", err)
		} else if n > 0 {
			slog.Debug("deleted expired sessions", "count", n)
		}
	}
}

func newSessionID() (string, error) {
	idBytes := make([]byte, 32)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(idBytes), nil
}

// CreateSession creates a new anonymous session.
func (sm *SessionManager) CreateSession() (*Session, error) {
	return sm.newSession("", "")
}

func (sm *SessionManager) newSession(userID, providerSessionID string) (*Session, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	session := &Session{
		ID:                sessionID,
		UserID:            userID,
		ProviderSessionID: providerSessionID,
		CreatedAt:         now,
		ExpiresAt:         now.Add(sessionDuration),
	}
	if userID == "" {
		session.ExpiresAt = now.Add(visitorSessionDuration)
	}

	sm.mu.Lock()
	if userID == "" {
		for sm.visitors >= sm.maxVisitors {
			if !sm.evictVisitorLocked() {
				break
			}
		}
		sm.visitors++
	}
	sm.sessions[sessionID] = session
	active := len(sm.sessions)
	sm.mu.Unlock()
	metrics.ActiveSessions.Set(float64(active))

	return session, nil
}

// evictVisitorLocked drops the anonymous session closest to expiry.
func (sm *SessionManager) evictVisitorLocked() bool {
	var oldest *Session
	for _, s := range sm.sessions {
		if s.SignedIn() {
			continue
		}
		if oldest == nil || s.ExpiresAt.Before(oldest.ExpiresAt) {
			oldest = s
		}
	}
	if oldest == nil {
		return false
	}
	sm.removeLocked(oldest.ID)
	return true
}

func (sm *SessionManager) removeLocked(id string) {
	s, ok := sm.sessions[id]
	if !ok {
		return
	}
	delete(sm.sessions, id)
	if !s.SignedIn() {
		sm.visitors--
	}
}

func (sm *SessionManager) visitorCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.visitors
}

// SignIn binds a provider user to a new session that replaces current.
func (sm *SessionManager) SignIn(ctx context.Context, current *Session, userID, providerSessionID string) (*Session, error) {
	session, err := sm.newSession(userID, providerSessionID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		sm.DeleteSession(ctx, current.ID)
	}

	if sm.repo != nil {
		if err := sm.repo.Save(ctx, toStored(session)); err != nil {
			slog.Warn("failed to persist session", "error", err)
		}
	}
	return session, nil
}

func toStored(s *Session) StoredSession {
	return StoredSession{
		ID:                s.ID,
		UserID:            s.UserID,
		ProviderSessionID: s.ProviderSessionID,
		CreatedAt:         s.CreatedAt,
		ExpiresAt:         s.ExpiresAt,
	}
}

// GetSession retrieves a session by ID, falling back to the repository.
func (sm *SessionManager) GetSession(ctx context.Context, sessionID string) *Session {
	sm.mu.RLock()
	session, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if ok {
		if time.Now().After(session.ExpiresAt) {
			sm.DeleteSession(ctx, sessionID)
			return nil
		}
		return session
	}

	if sm.repo == nil {
		return nil
	}
	stored, err := sm.repo.Get(ctx, sessionID)
	if err != nil {
		slog.Warn("failed to load session", "error", err)
		return nil
	}
	if stored == nil {
		return nil
	}
	session = &Session{
		ID:                stored.ID,
		UserID:            stored.UserID,
		ProviderSessionID: stored.ProviderSessionID,
		CreatedAt:         stored.CreatedAt,
		ExpiresAt:         stored.ExpiresAt,
	}
	sm.mu.Lock()
	sm.sessions[sessionID] = session
	sm.mu.Unlock()
	return session
}

// DeleteSession removes a session
func (sm *SessionManager) DeleteSession(ctx context.Context, sessionID string) {
	sm.mu.Lock()
	sm.removeLocked(sessionID)
	active := len(sm.sessions)
	sm.mu.Unlock()
	metrics.ActiveSessions.Set(float64(active))

	if sm.repo != nil {
		if err := sm.repo.Delete(ctx, sessionID); err != nil {
			slog.Warn("failed to delete persisted session", "error", err)
		}
	}
}

// SetSessionCookie sets the session cookie on the response
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, session *Session) {
	// Sign the session ID
	signature := sm.signData(session.ID)
	cookieValue := session.ID + "." + signature

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// GetSessionFromRequest extracts the session from a request
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	sessionID, signature, ok := strings.Cut(cookie.Value, ".")
	if !ok || !sm.verifySignature(sessionID, signature) {
		return nil
	}
	return sm.GetSession(r.Context(), sessionID)
}

// signData creates an HMAC signature for data
func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// verifySignature verifies an HMAC signature
func (sm *SessionManager) verifySignature(data, signature string) bool {
	expected := sm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}
