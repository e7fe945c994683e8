package middleware

import (
	"context"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/auth"
	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/reqctx"
	"google.golang.org/api/option"
)

const (
	SessionCookie = "session"

	// keys set on echo.Context for authenticated requests
	CtxUserID   = "uid"
	CtxUsername = "username"
)

// FirebaseUsers maps a verified Firebase identity to a local account.
type FirebaseUsers interface {
	ResolveFirebaseUser(ctx context.Context, firebaseUID, displayName string) (*model.User, error)
}

type AuthMiddleware struct {
	sessions   *auth.Sessions
	users      FirebaseUsers
	authClient *fbauth.Client
	log        zerolog.Logger
}

func NewAuthMiddleware(sessions *auth.Sessions, users FirebaseUsers, log zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, users: users, log: log}
}

// EnableFirebase additionally accepts Firebase ID tokens as Bearer credentials.
func (m *AuthMiddleware) EnableFirebase(ctx context.Context, projectID, credentialsFile string) error {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return err
	}
	m.authClient = client
	return nil
}

// Authenticate attaches the caller's identity when a valid credential is present
// and lets anonymous requests through.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id, name, ok := m.identify(c); ok {
			c.Set(CtxUserID, id)
			c.Set(CtxUsername, name)
			req := c.Request()
			c.SetRequest(req.WithContext(reqctx.WithUserID(req.Context(), id)))
		}
		return next(c)
	}
}

// RequireAuth rejects anonymous requests. Identity already set by Authenticate is reused.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	check := func(c echo.Context) error {
		if UserID(c) == 0 {
			return c.JSON(http.StatusUnauthorized, errorBody("unauthorized", "login required"))
		}
		return next(c)
	}
	withIdentity := m.Authenticate(check)
	return func(c echo.Context) error {
		if UserID(c) != 0 {
			return check(c)
		}
		return withIdentity(c)
	}
}

func (m *AuthMiddleware) identify(c echo.Context) (uint64, string, bool) {
	if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
		if id, claims, err := m.sessions.Verify(ck.Value); err == nil {
			return id, claims.Username, true
		}
	}

	var tokenStr string
	if authz := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(authz, "Bearer ") {
		tokenStr = strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	} else if c.IsWebSocket() {
		// browsers cannot set headers on websocket handshakes
		tokenStr = c.QueryParam("token")
	}
	if tokenStr == "" {
		return 0, "", false
	}
	if id, claims, err := m.sessions.Verify(tokenStr); err == nil {
		return id, claims.Username, true
	}
	if m.authClient == nil || m.users == nil {
		return 0, "", false
	}

	ctx := c.Request().Context()
	token, err := m.authClient.VerifyIDToken(ctx, tokenStr)
	if err != nil {
		m.log.Debug().Err(err).Msg("firebase token rejected")
		return 0, "", false
	}
	name, _ := token.Claims["name"].(string)
	u, err := m.users.ResolveFirebaseUser(ctx, token.UID, name)
	if err != nil {
		m.log.Warn().Err(err).Str("firebase_uid", token.UID).Msg("firebase user mapping failed")
		return 0, "", false
	}
	return u.ID, u.Username, true
}

// UserID returns the authenticated user's id, or 0.
func UserID(c echo.Context) uint64 {
	id, _ := c.Get(CtxUserID).(uint64)
	return id
}

func Username(c echo.Context) string {
	name, _ := c.Get(CtxUsername).(string)
	return name
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorBody(code, message string) map[string]errorPayload {
	return map[string]errorPayload{"error": {Code: code, Message: message}}
}
