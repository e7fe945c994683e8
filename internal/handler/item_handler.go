package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	appmw "github.com/shinyyama/social-market/internal/middleware"
	"github.com/shinyyama/social-market/internal/model"
	"github.com/shinyyama/social-market/internal/service"
)

const maxUploadBytes = 5 << 20

type ItemHandler struct {
	svc service.MarketService
}

func NewItemHandler(svc service.MarketService) *ItemHandler {
	return &ItemHandler{svc: svc}
}

type ItemResponse struct {
	ID          uint64  `json:"id"`
	SellerID    uint64  `json:"sellerId"`
	Seller      string  `json:"seller,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       string  `json:"price"`
	PriceCents  int64   `json:"priceCents"`
	Quantity    int     `json:"quantity"`
	Condition   string  `json:"condition,omitempty"`
	Category    string  `json:"category,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Total int64          `json:"total"`
}

type CategoryResponse struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// itemRequest accepts price and quantity as JSON numbers or strings.
type itemRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       interface{} `json:"price"`
	Quantity    interface{} `json:"quantity"`
	Condition   string      `json:"condition"`
	Category    string      `json:"category"`
}

func (h *ItemHandler) Create(c echo.Context) error {
	uid := appmw.UserID(c)
	if uid == 0 {
		return unauthorized(c)
	}
	in, err := bindItemInput(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	item, err := h.svc.CreateItem(c.Request().Context(), uid, in)
	if err != nil {
		return writeError(c, err, "failed to create item")
	}
	return c.JSON(http.StatusCreated, toItemResponse(item))
}

func (h *ItemHandler) Get(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	item, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err, "failed to fetch item")
	}
	return c.JSON(http.StatusOK, toItemResponse(item))
}

func (h *ItemHandler) List(c echo.Context) error {
	limit := queryInt(c, "limit", 0)
	offset := queryInt(c, "offset", 0)
	items, total, err := h.svc.ListItems(c.Request().Context(), limit, offset)
	if err != nil {
		return writeError(c, err, "failed to fetch items")
	}
	return c.JSON(http.StatusOK, toItemList(items, total))
}

func (h *ItemHandler) Search(c echo.Context) error {
	items, err := h.svc.SearchItems(c.Request().Context(), c.QueryParam("query"))
	if err != nil {
		return writeError(c, err, "failed to search items")
	}
	return c.JSON(http.StatusOK, toItemList(items, int64(len(items))))
}

func (h *ItemHandler) ListMine(c echo.Context) error {
	items, err := h.svc.ListBySeller(c.Request().Context(), appmw.UserID(c))
	if err != nil {
		return writeError(c, err, "failed to fetch items")
	}
	return c.JSON(http.StatusOK, toItemList(items, int64(len(items))))
}

func (h *ItemHandler) Update(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	in, err := bindItemInput(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	item, err := h.svc.UpdateItem(c.Request().Context(), appmw.UserID(c), id, in)
	if err != nil {
		return writeError(c, err, "failed to update item")
	}
	return c.JSON(http.StatusOK, toItemResponse(item))
}

func (h *ItemHandler) Delete(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.svc.DeleteItem(c.Request().Context(), appmw.UserID(c), id); err != nil {
		return writeError(c, err, "failed to delete item")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ItemHandler) Categories(c echo.Context) error {
	cats, err := h.svc.Categories(c.Request().Context())
	if err != nil {
		return writeError(c, err, "failed to fetch categories")
	}
	resp := make([]CategoryResponse, 0, len(cats))
	for _, cat := range cats {
		resp = append(resp, CategoryResponse{ID: cat.ID, Name: cat.Name})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"categories": resp})
}

func bindItemInput(c echo.Context) (service.ItemInput, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ct, echo.MIMEMultipartForm) || strings.HasPrefix(ct, echo.MIMEApplicationForm) {
		in := service.ItemInput{
			Name:        c.FormValue("name"),
			Description: c.FormValue("description"),
			Price:       c.FormValue("price"),
			Quantity:    c.FormValue("quantity"),
			Condition:   c.FormValue("condition"),
			Category:    c.FormValue("category"),
		}
		if strings.HasPrefix(ct, echo.MIMEMultipartForm) {
			img, err := readImage(c)
			if err != nil {
				return in, err
			}
			in.Image = img
		}
		return in, nil
	}

	var req itemRequest
	if err := c.Bind(&req); err != nil {
		return service.ItemInput{}, fmt.Errorf("invalid json")
	}
	return service.ItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       scalarString(req.Price),
		Quantity:    scalarString(req.Quantity),
		Condition:   req.Condition,
		Category:    req.Category,
	}, nil
}

func readImage(c echo.Context) (*service.ImageUpload, error) {
	fh, err := c.FormFile("image")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid image upload")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("invalid image upload")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("invalid image upload")
	}
	return &service.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return ""
	}
	return fmt.Sprint(v)
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func toItemResponse(item *model.Item) ItemResponse {
	resp := ItemResponse{
		ID:          item.ID,
		SellerID:    item.SellerID,
		Name:        item.Name,
		Description: item.Description,
		Price:       formatCents(item.PriceCents),
		PriceCents:  item.PriceCents,
		Quantity:    item.Quantity,
		Condition:   item.Condition,
		ImageURL:    item.ImageURL,
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   item.UpdatedAt.Format(time.RFC3339),
	}
	if item.Seller != nil {
		resp.Seller = item.Seller.Username
	}
	if item.Category != nil {
		resp.Category = item.Category.Name
	}
	return resp
}

func toItemList(items []model.Item, total int64) ItemListResponse {
	resp := ItemListResponse{
		Items: make([]ItemResponse, 0, len(items)),
		Total: total,
	}
	for i := range items {
		resp.Items = append(resp.Items, toItemResponse(&items[i]))
	}
	return resp
}
