package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shinyyama/social-market/internal/auth"
	"github.com/shinyyama/social-market/internal/chat"
	"github.com/shinyyama/social-market/internal/config"
	"github.com/shinyyama/social-market/internal/db"
	appmw "github.com/shinyyama/social-market/internal/middleware"
	"github.com/shinyyama/social-market/internal/repository"
	"github.com/shinyyama/social-market/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv *Server
	hub *chat.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		DBDriver:           "sqlite",
		SQLitePath:         ":memory:",
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		StorageBucket:      "unused",
	}
	conn, err := db.Connect(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log := zerolog.Nop()
	hub := chat.NewHub(0, log)
	rooms := repository.NewRoomRepository(conn)
	users := service.NewUserService(repository.NewUserRepository(conn))
	notifications := service.NewNotificationService(repository.NewNotificationRepository(conn), log)
	chatSvc := service.NewChatService(rooms, hub, log)
	market := service.NewMarketService(service.MarketDeps{
		Items:    repository.NewItemRepository(conn),
		Rooms:    rooms,
		Chat:     chatSvc,
		Notifier: notifications,
		Log:      log,
	})
	blog := service.NewBlogService(repository.NewPostRepository(conn), repository.NewReactionRepository(conn))
	sessions, err := auth.NewSessions("server-test", time.Hour)
	require.NoError(t, err)

	srv := New(cfg, Deps{
		Users:         users,
		Market:        market,
		Blog:          blog,
		Chat:          chatSvc,
		Notifications: notifications,
		Sessions:      sessions,
		Auth:          appmw.NewAuthMiddleware(sessions, users, log),
		Limiter:       appmw.NewRateLimiter(1000, 1000, log),
		Hub:           hub,
	}, log, "abc123", "now")
	return &testServer{srv: srv, hub: hub}
}

func (ts *testServer) do(t *testing.T, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.srv.Echo().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (ts *testServer) register(t *testing.T, name string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password1":"password123","password2":"password123"}`, name)
	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", decode(t, rec)["git_sha"])

	rec = ts.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice")

	rec := ts.do(t, http.MethodGet, "/api/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode(t, rec)["username"])

	rec = ts.do(t, http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"alice","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decode(t, rec)["error"].(map[string]interface{})["code"])

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"alice","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), appmw.SessionCookie+"=")

	rec = ts.do(t, http.MethodPost, "/api/auth/register", "", `{"username":"bad name","password1":"x","password2":"y"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode(t, rec)["error"].(map[string]interface{})["fields"].(map[string]interface{})
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password1")
	assert.Contains(t, fields, "password2")
}

func TestMarketplaceFlow(t *testing.T) {
	ts := newTestServer(t)
	seller := ts.register(t, "seller")
	buyer := ts.register(t, "buyer")
	stranger := ts.register(t, "stranger")

	rec := ts.do(t, http.MethodPost, "/api/items", seller, `{"name":"","description":"x","price":"abc"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decode(t, rec)["error"].(map[string]interface{})["code"])

	rec = ts.do(t, http.MethodPost, "/api/items", seller, `{"name":"Desk lamp","description":"Warm light","price":15,"category":"Home"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode(t, rec)
	itemID := uint64(item["id"].(float64))
	assert.Equal(t, "15.00", item["price"])

	rec = ts.do(t, http.MethodGet, "/api/items/search?query=lamp", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	roomPath := fmt.Sprintf("/api/rooms/Item_%d_buyer_seller/messages", itemID)
	rec = ts.do(t, http.MethodPost, roomPath, stranger, `{"message":"first!"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/items/%d/contact", itemID), buyer, `{"message":"Still available?"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	contact := decode(t, rec)
	assert.Equal(t, fmt.Sprintf("Item_%d_buyer_seller", itemID), contact["room"])

	rec = ts.do(t, http.MethodGet, roomPath, stranger, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodGet, roomPath, seller, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	convID := uint64(contact["conversationId"].(float64))

	rec = ts.do(t, http.MethodGet, "/api/notifications", seller, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["unreadCount"])

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/messages/%d", convID), stranger, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "permission_denied", decode(t, rec)["error"].(map[string]interface{})["code"])

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/messages/%d/reply", convID), seller, `{"message":"Yes!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Yes!", decode(t, rec)["body"])

	rec = ts.do(t, http.MethodGet, "/api/messages", buyer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	convs := decode(t, rec)["conversations"].([]interface{})
	require.Len(t, convs, 1)

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/messages/%d", convID), buyer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deleted", decode(t, rec)["status"])

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/items/%d/ask", itemID), buyer, `{"question":"Bulb included?"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/items/%d", itemID), buyer, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/items/%d", itemID), seller, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestReactionEndpoints(t *testing.T) {
	ts := newTestServer(t)
	author := ts.register(t, "author")
	fan := ts.register(t, "fan")

	rec := ts.do(t, http.MethodPost, "/api/posts", author, `{"title":"Hello","content":"First","publish":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	postID := uint64(decode(t, rec)["id"].(float64))
	likePath := fmt.Sprintf("/api/posts/%d/like", postID)

	rec = ts.do(t, http.MethodPost, likePath, fan, "", "X-Requested-With", "XMLHttpRequest")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode(t, rec)
	assert.Equal(t, "liked", res["state"])
	assert.EqualValues(t, 1, res["likes"])

	rec = ts.do(t, http.MethodPost, likePath, fan, "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, fmt.Sprintf("/api/posts/%d", postID), rec.Header().Get("Location"))

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/dislike", postID), fan, "", "X-Requested-With", "XMLHttpRequest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disliked", decode(t, rec)["state"])

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/double-like", postID), fan, "", "X-Requested-With", "XMLHttpRequest")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "liked", decode(t, rec)["state"])

	rec = ts.do(t, http.MethodPost, "/api/posts/999/like", fan, "", "X-Requested-With", "XMLHttpRequest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodPost, likePath, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), fan, `{"body":"Nice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), fan, "")
	require.Equal(t, http.StatusOK, rec.Code)
	post := decode(t, rec)
	assert.Equal(t, "liked", post["myReaction"])
	assert.EqualValues(t, 1, post["likes"])

	rec = ts.do(t, http.MethodGet, "/api/notifications?unread_only=false", author, "")
	require.Equal(t, http.StatusOK, rec.Code)
	notifs := decode(t, rec)["notifications"].([]interface{})
	types := map[string]int{}
	for _, n := range notifs {
		types[n.(map[string]interface{})["type"].(string)]++
	}
	assert.Equal(t, map[string]int{"like": 1, "comment": 1}, types)
}

func TestChatRoomEndpoints(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice")
	bob := ts.register(t, "bob")

	sub := ts.hub.Subscribe("lobby")
	defer sub.Close()

	rec := ts.do(t, http.MethodPost, "/api/rooms/lobby/messages", alice, `{"message":"hi all"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	select {
	case ev := <-sub.C:
		assert.Equal(t, "hi all", ev.Message.Body)
		assert.Equal(t, "alice", ev.Message.Sender)
	case <-time.After(time.Second):
		t.Fatal("no realtime event")
	}

	rec = ts.do(t, http.MethodGet, "/api/rooms/lobby/messages", bob, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "bob has not joined yet")

	rec = ts.do(t, http.MethodPost, "/api/rooms/lobby/messages", bob, `{"message":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/rooms/lobby/messages", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["messages"].([]interface{}), 2)

	rec = ts.do(t, http.MethodGet, "/api/rooms", alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["rooms"].([]interface{}), 1)

	rec = ts.do(t, http.MethodGet, "/ws/chat/lobby", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
