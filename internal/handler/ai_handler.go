package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	appmw "github.com/shinyyama/social-market/internal/middleware"
	"github.com/shinyyama/social-market/internal/service"
)

type AIHandler struct {
	svc service.MarketService
}

func NewAIHandler(svc service.MarketService) *AIHandler {
	return &AIHandler{svc: svc}
}

type askRequest struct {
	Question string `json:"question" form:"question"`
}

func (h *AIHandler) AskItem(c echo.Context) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid item id")
	}
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid json")
	}
	answer, err := h.svc.AskItem(c.Request().Context(), uid, itemID, req.Question)
	if err != nil {
		return writeError(c, err, "failed to answer question")
	}
	return c.JSON(http.StatusOK, map[string]string{"answer": answer})
}
