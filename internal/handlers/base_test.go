package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"growjournal/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		code int
		body string
	}{
		{&services.ValidationError{Msg: "title is required"}, http.StatusBadRequest, `{"error":"title is required"}`},
		{fmt.Errorf("load: %w", services.ErrNotFound), http.StatusNotFound, `{"error":"not found"}`},
		{services.ErrForbidden, http.StatusForbidden, `{"error":"forbidden"}`},
		{services.ErrInvalidToken, http.StatusUnauthorized, `{"error":"invalid or expired token"}`},
		{errors.New("connection reset"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/api/x", nil)
			respondError(c, tt.err)
			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestParamID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for raw, ok := range map[string]bool{"12": true, "0": false, "-1": false, "abc": false} {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Params = gin.Params{{Key: "id", Value: raw}}
		_, got := paramID(c, "id")
		assert.Equal(t, ok, got, raw)
		if !ok {
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		}
	}
}
