package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/social-market/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &service.ValidationError{Fields: map[string]string{"name": "required"}}, http.StatusBadRequest, "validation_error"},
		{"permission", fmt.Errorf("delete: %w", service.ErrForbidden), http.StatusBadRequest, "permission_denied"},
		{"not found", service.ErrNotFound, http.StatusNotFound, "not_found"},
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"conflict", service.ErrConflict, http.StatusConflict, "conflict"},
		{"upstream", fmt.Errorf("%w: timeout", service.ErrUpstream), http.StatusBadGateway, "upstream_error"},
		{"disabled", service.ErrDisabled, http.StatusServiceUnavailable, "unavailable"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, writeError(c, tt.err, "boom"))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"`+tt.code+`"`)
		})
	}
}

func TestValidationErrorCarriesFields(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, writeError(c, &service.ValidationError{Fields: map[string]string{"price": "enter a number"}}, "x"))
	assert.Contains(t, rec.Body.String(), `"fields":{"price":"enter a number"}`)
}

func TestBindItemInputJSON(t *testing.T) {
	e := echo.New()
	body := `{"name":"Lamp","description":"Warm","price":12.5,"quantity":3,"category":"Home"}`
	req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	in, err := bindItemInput(c)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", in.Name)
	assert.Equal(t, "12.5", in.Price)
	assert.Equal(t, "3", in.Quantity)
	assert.Nil(t, in.Image)
}

func TestBindItemInputForm(t *testing.T) {
	e := echo.New()
	form := "name=Lamp&description=Warm&price=9.99"
	req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(form))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	c := e.NewContext(req, httptest.NewRecorder())

	in, err := bindItemInput(c)
	require.NoError(t, err)
	assert.Equal(t, "9.99", in.Price)
	assert.Empty(t, in.Quantity)
}

func TestScalarStringAndCents(t *testing.T) {
	assert.Equal(t, "", scalarString(nil))
	assert.Equal(t, "7", scalarString(float64(7)))
	assert.Equal(t, "0.5", scalarString(0.5))
	assert.Equal(t, "x", scalarString("x"))
	assert.Equal(t, "", scalarString(true))

	assert.Equal(t, "12.05", formatCents(1205))
	assert.Equal(t, "0.00", formatCents(0))
}
