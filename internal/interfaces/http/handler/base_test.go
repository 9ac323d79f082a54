package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/shared"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testContext builds a gin context with a bare GET request attached so
// the helpers that read headers do not hit a nil Request.
func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*gin.Context)
		want  string
	}{
		{
			name:  "from context string",
			setup: func(c *gin.Context) { c.Set(RequestIDKey, "ctx-request-id") },
			want:  "ctx-request-id",
		},
		{
			name:  "from header when context empty",
			setup: func(c *gin.Context) { c.Request.Header.Set(RequestIDKey, "header-request-id") },
			want:  "header-request-id",
		},
		{
			name:  "empty when not set",
			setup: func(c *gin.Context) {},
			want:  "",
		},
		{
			name: "context takes precedence over header",
			setup: func(c *gin.Context) {
				c.Set(RequestIDKey, "ctx-id")
				c.Request.Header.Set(RequestIDKey, "header-id")
			},
			want: "ctx-id",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := testContext(t)
			tc.setup(c)

			assert.Equal(t, tc.want, getRequestID(c))
		})
	}
}

func TestBaseHandler_SuccessEnvelopes(t *testing.T) {
	h := &BaseHandler{}

	t.Run("Success", func(t *testing.T) {
		c, w := testContext(t)

		h.Success(c, map[string]string{"key": "value"})

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		assert.Nil(t, resp.Error)
	})

	t.Run("Created", func(t *testing.T) {
		c, w := testContext(t)

		h.Created(c, map[string]string{"id": "123"})

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("NoContent writes an empty body", func(t *testing.T) {
		c, w := testContext(t)

		h.NoContent(c)
		// CreateTestContext never flushes the deferred status the way the
		// engine does at end of request, so flush it here.
		c.Writer.WriteHeaderNow()

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestBaseHandler_ErrorWithCode(t *testing.T) {
	cases := []struct {
		name       string
		code       string
		wantStatus int
	}{
		{"not found", dto.ErrCodeNotFound, http.StatusNotFound},
		{"charge pending", dto.ErrCodeChargePending, http.StatusConflict},
		{"gateway unavailable", dto.ErrCodeGatewayUnavailable, http.StatusBadGateway},
		{"unknown code", "SOMETHING_ELSE", http.StatusInternalServerError},
	}

	h := &BaseHandler{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := testContext(t)

			h.ErrorWithCode(c, tc.code, "message")

			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestBaseHandler_ErrorCarriesRequestID(t *testing.T) {
	h := &BaseHandler{}
	c, w := testContext(t)
	c.Set(RequestIDKey, "req-42")

	h.BadRequest(c, "bad input")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "req-42", resp.Error.RequestID)
}

func TestHandleError(t *testing.T) {
	h := &BaseHandler{}

	t.Run("domain error keeps its code and message", func(t *testing.T) {
		c, w := testContext(t)

		h.HandleError(c, shared.NewDomainError("CONTRACT_NOT_FOUND", "No contract for order item 3"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
		assert.Equal(t, "No contract for order item 3", resp.Error.Message)
	})

	t.Run("plain error becomes an opaque 500", func(t *testing.T) {
		c, w := testContext(t)

		h.HandleError(c, errors.New("plain error"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	})

	t.Run("nil error writes nothing", func(t *testing.T) {
		c, w := testContext(t)

		h.HandleError(c, nil)

		assert.Empty(t, w.Body.String())
	})
}
