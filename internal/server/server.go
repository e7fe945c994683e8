package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/auth"
	"github.com/shinyyama/social-market/internal/chat"
	"github.com/shinyyama/social-market/internal/config"
	"github.com/shinyyama/social-market/internal/handler"
	"github.com/shinyyama/social-market/internal/metrics"
	appmw "github.com/shinyyama/social-market/internal/middleware"
	"github.com/shinyyama/social-market/internal/service"
)

// Deps are the wired services the HTTP layer depends on.
type Deps struct {
	Users         service.UserService
	Market        service.MarketService
	Blog          service.BlogService
	Chat          service.ChatService
	Notifications service.NotificationService
	Sessions      *auth.Sessions
	Auth          *appmw.AuthMiddleware
	Limiter       *appmw.RateLimiter
	Hub           *chat.Hub
	Upgrader      *websocket.Upgrader
}

type Server struct {
	e *echo.Echo
}

func New(cfg *config.Config, d Deps, log zerolog.Logger, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(appmw.RequestID(log))
	e.Use(appmw.RequestLogger(log))
	e.Use(appmw.Metrics)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestedWith},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(cfg.CORSAllowedOrigins),
	}))
	e.Use(d.Auth.Authenticate)

	upgrader := d.Upgrader
	if upgrader == nil {
		upgrader = chat.NewUpgrader(cfg.CORSAllowedOrigins)
	}
	userHandler := handler.NewUserHandler(d.Users, d.Sessions, cfg.IsProduction())
	itemHandler := handler.NewItemHandler(d.Market)
	aiHandler := handler.NewAIHandler(d.Market)
	convHandler := handler.NewConversationHandler(d.Market)
	postHandler := handler.NewPostHandler(d.Blog)
	notifHandler := handler.NewNotificationHandler(d.Notifications)
	chatHandler := handler.NewChatHandler(d.Chat, d.Hub, upgrader, log)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	if cfg.StorageBucket == "" && cfg.MediaBaseURL != "" {
		e.Static(cfg.MediaBaseURL, cfg.MediaRoot)
	}

	limited := d.Limiter.Handler
	requireAuth := d.Auth.RequireAuth

	api := e.Group("/api")
	api.POST("/auth/register", userHandler.Register, limited)
	api.POST("/auth/login", userHandler.Login, limited)
	api.POST("/auth/logout", userHandler.Logout, limited)
	api.GET("/me", userHandler.Me, requireAuth)

	api.GET("/items", itemHandler.List)
	api.GET("/items/search", itemHandler.Search)
	api.GET("/items/:id", itemHandler.Get)
	api.GET("/categories", itemHandler.Categories)
	api.POST("/items", itemHandler.Create, requireAuth)
	api.PUT("/items/:id", itemHandler.Update, requireAuth)
	api.DELETE("/items/:id", itemHandler.Delete, requireAuth)
	api.GET("/me/items", itemHandler.ListMine, requireAuth)
	api.POST("/items/:id/contact", convHandler.Contact, requireAuth)
	api.POST("/items/:id/ask", aiHandler.AskItem, requireAuth)

	api.GET("/messages", convHandler.List, requireAuth)
	api.POST("/messages/:id/reply", convHandler.Reply, requireAuth)
	api.DELETE("/messages/:id", convHandler.Delete, requireAuth)

	api.GET("/posts", postHandler.List)
	api.POST("/posts", postHandler.Create, requireAuth)
	api.GET("/posts/:id", postHandler.Get)
	api.POST("/posts/:id/like", postHandler.Like, requireAuth, limited)
	api.POST("/posts/:id/dislike", postHandler.Dislike, requireAuth, limited)
	api.POST("/posts/:id/double-like", postHandler.DoubleLike, requireAuth, limited)
	api.GET("/posts/:id/comments", postHandler.ListComments)
	api.POST("/posts/:id/comments", postHandler.Comment, requireAuth)

	api.GET("/notifications", notifHandler.List, requireAuth)
	api.POST("/notifications/read", notifHandler.MarkAllRead, requireAuth)

	api.GET("/rooms", chatHandler.ListRooms, requireAuth)
	api.GET("/rooms/:name/messages", chatHandler.History, requireAuth)
	api.POST("/rooms/:name/messages", chatHandler.PostMessage, requireAuth)

	e.GET("/ws/chat/:name", chatHandler.Socket)

	return &Server{e: e}
}

// allowOrigin admits localhost during development and the configured origins.
func allowOrigin(allowed []string) func(string) (bool, error) {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimSpace(o); o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if _, ok := set[low]; ok {
			return true, nil
		}
		_, wildcard := set["*"]
		return wildcard, nil
	}
}

func (s *Server) Echo() *echo.Echo {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
