package roomchat

import (
	"context"
	"net/http"
	"time"

	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/pkg/router"
	"github.com/putto11262002/roomchat/pkg/token"
)

const SessionCookieName = "chat_session"

type sessionKey struct{}

// Session is the client session attached to authenticated requests.
type Session struct {
	ID        string
	ExpiresAt time.Time
	Chat      *core.Chat
}

func contextWithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func sessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(Session)
	return session, ok
}

// SessionFromRequest extracts the session from the request context.
// It must be called in handlers that are protected by the SessionMiddleware.
// It panics if the session is not found in the request context.
func SessionFromRequest(r *http.Request) Session {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		panic("session not found in request context: call this function in handlers that are protected by SessionMiddleware")
	}
	return session
}

var errNoSession = router.NewJsonError(http.StatusUnauthorized, "unauthenticated")

type Authenticator struct {
	secret   []byte
	ttl      time.Duration
	sessions *Sessions
}

func NewAuthenticator(secret []byte, ttl time.Duration, sessions *Sessions) *Authenticator {
	return &Authenticator{secret: secret, ttl: ttl, sessions: sessions}
}

// Authenticate resolves the session of the request cookie.
func (a *Authenticator) Authenticate(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return Session{}, errNoSession
	}
	claims, err := token.Verify(cookie.Value, a.secret)
	if err != nil {
		return Session{}, errNoSession.Wrap(err)
	}
	chat := a.sessions.Get(claims.SessionID)
	a.sessions.ExpireAt(claims.SessionID, claims.ExpiresAt.Time)
	return Session{
		ID:        claims.SessionID,
		ExpiresAt: claims.ExpiresAt.Time,
		Chat:      chat,
	}, nil
}

// Issue signs a token for sessionID and sets it as the session cookie.
func (a *Authenticator) Issue(w http.ResponseWriter, sessionID string) (string, time.Time, error) {
	signed, exp, err := token.New(sessionID, a.ttl, a.secret)
	if err != nil {
		return "", exp, err
	}
	a.sessions.ExpireAt(sessionID, exp)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    signed,
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
	return signed, exp, nil
}

func (a *Authenticator) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	})
}

// SessionMiddleware validates the session cookie and attaches the session to the request context.
// The session is guaranteed to be attached to the request context for subsequent handlers.
func SessionMiddleware(a *Authenticator) router.Middleware {
	return func(next http.Handler) router.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			session, err := a.Authenticate(r)
			if err != nil {
				return err
			}
			next.ServeHTTP(w, r.WithContext(contextWithSession(r.Context(), session)))
			return nil
		}
	}
}

// currentUser returns the logged in user of the session chat.
func currentUser(chat *core.Chat) (core.User, error) {
	state := chat.State()
	if state.CurrentUser == nil {
		return core.User{}, core.ErrUnauthenticated
	}
	return *state.CurrentUser, nil
}
