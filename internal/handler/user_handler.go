package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/social-market/internal/auth"
	appmw "github.com/shinyyama/social-market/internal/middleware"
	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/service"
)

type UserHandler struct {
	svc          service.UserService
	sessions     *auth.Sessions
	secureCookie bool
}

func NewUserHandler(svc service.UserService, sessions *auth.Sessions, secureCookie bool) *UserHandler {
	return &UserHandler{svc: svc, sessions: sessions, secureCookie: secureCookie}
}

type UserResponse struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
}

type SessionResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

type registerRequest struct {
	Username  string `json:"username" form:"username"`
	Password1 string `json:"password1" form:"password1"`
	Password2 string `json:"password2" form:"password2"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// Register creates the account and logs it in.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	u, err := h.svc.Register(c.Request().Context(), req.Username, req.Password1, req.Password2)
	if err != nil {
		return writeError(c, err, "failed to register")
	}
	return h.startSession(c, http.StatusCreated, u)
}

func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	u, err := h.svc.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if err == service.ErrUnauthorized {
			return c.JSON(http.StatusUnauthorized, NewErrorResponse("invalid_credentials", "please enter a correct username and password"))
		}
		return writeError(c, err, "failed to log in")
	}
	return h.startSession(c, http.StatusOK, u)
}

func (h *UserHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     appmw.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *UserHandler) Me(c echo.Context) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	u, err := h.svc.Get(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err, "failed to fetch user")
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) startSession(c echo.Context, status int, u *model.User) error {
	token, err := h.sessions.Issue(u.ID, u.Username)
	if err != nil {
		return writeError(c, err, "failed to start session")
	}
	c.SetCookie(&http.Cookie{
		Name:     appmw.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessions.TTL()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(status, SessionResponse{User: toUserResponse(u), Token: token})
}
