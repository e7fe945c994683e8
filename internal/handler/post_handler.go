package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	appmw "github.com/shinyyama/social-market/internal/middleware"
	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/service"
)

type PostHandler struct {
	svc service.BlogService
}

func NewPostHandler(svc service.BlogService) *PostHandler {
	return &PostHandler{svc: svc}
}

type PostResponse struct {
	ID         uint64 `json:"id"`
	AuthorID   uint64 `json:"authorId"`
	Author     string `json:"author,omitempty"`
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle,omitempty"`
	Content    string `json:"content"`
	Status     string `json:"status"`
	Likes      int64  `json:"likes"`
	Dislikes   int64  `json:"dislikes"`
	MyReaction string `json:"myReaction,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

type CommentResponse struct {
	ID        uint64 `json:"id"`
	PostID    uint64 `json:"postId"`
	AuthorID  uint64 `json:"authorId"`
	Author    string `json:"author,omitempty"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

type createPostRequest struct {
	Title    string `json:"title" form:"title"`
	Subtitle string `json:"subtitle" form:"subtitle"`
	Content  string `json:"content" form:"content"`
	Publish  bool   `json:"publish" form:"publish"`
}

type commentRequest struct {
	Body string `json:"body" form:"body"`
}

func toPostResponse(p *model.Post) PostResponse {
	resp := PostResponse{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Title:     p.Title,
		Subtitle:  p.Subtitle,
		Content:   p.Content,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
	if p.Author != nil {
		resp.Author = p.Author.Username
	}
	return resp
}

func toCommentResponse(cm *model.Comment) CommentResponse {
	resp := CommentResponse{
		ID:        cm.ID,
		PostID:    cm.PostID,
		AuthorID:  cm.AuthorID,
		Body:      cm.Body,
		CreatedAt: cm.CreatedAt.Format(time.RFC3339),
	}
	if cm.Author != nil {
		resp.Author = cm.Author.Username
	}
	return resp
}

func (h *PostHandler) List(c echo.Context) error {
	posts, err := h.svc.ListPosts(c.Request().Context(), queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		return writeError(c, err, "failed to fetch posts")
	}
	resp := make([]PostResponse, 0, len(posts))
	for i := range posts {
		resp = append(resp, toPostResponse(&posts[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"posts": resp})
}

func (h *PostHandler) Create(c echo.Context) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	var req createPostRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	p, err := h.svc.CreatePost(c.Request().Context(), uid, service.CreatePostInput{
		Title:    req.Title,
		Subtitle: req.Subtitle,
		Content:  req.Content,
		Publish:  req.Publish,
	})
	if err != nil {
		return writeError(c, err, "failed to create post")
	}
	return c.JSON(http.StatusCreated, toPostResponse(p))
}

func (h *PostHandler) Get(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	view, err := h.svc.GetPost(c.Request().Context(), id, appmw.UserID(c))
	if err != nil {
		return writeError(c, err, "failed to fetch post")
	}
	resp := toPostResponse(view.Post)
	resp.Likes = view.Likes
	resp.Dislikes = view.Dislikes
	if appmw.UserID(c) != 0 {
		resp.MyReaction = string(view.MyReaction)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PostHandler) Like(c echo.Context) error {
	return h.react(c, service.ActionLike)
}

func (h *PostHandler) Dislike(c echo.Context) error {
	return h.react(c, service.ActionDislike)
}

func (h *PostHandler) DoubleLike(c echo.Context) error {
	return h.react(c, service.ActionDoubleLike)
}

// react answers AJAX callers with the new state and redirects everyone else back to the post.
func (h *PostHandler) react(c echo.Context, action service.ReactionAction) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	res, err := h.svc.React(c.Request().Context(), uid, id, action)
	if err != nil {
		return writeError(c, err, "failed to update reaction")
	}
	if isAjax(c) {
		return c.JSON(http.StatusOK, res)
	}
	return c.Redirect(http.StatusSeeOther, fmt.Sprintf("/api/posts/%d", id))
}

func (h *PostHandler) ListComments(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	list, err := h.svc.ListComments(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err, "failed to fetch comments")
	}
	resp := make([]CommentResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toCommentResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"comments": resp})
}

func (h *PostHandler) Comment(c echo.Context) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	cm, err := h.svc.Comment(c.Request().Context(), uid, id, req.Body)
	if err != nil {
		return writeError(c, err, "failed to add comment")
	}
	return c.JSON(http.StatusCreated, toCommentResponse(cm))
}

func isAjax(c echo.Context) bool {
	return c.Request().Header.Get(echo.HeaderXRequestedWith) == "XMLHttpRequest"
}
