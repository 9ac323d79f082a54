package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyLimitRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(BodyLimit(limit))
	router.POST("/charging/orders", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func postBody(router *gin.Engine, payload string, contentLength int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/charging/orders", strings.NewReader(payload))
	req.ContentLength = contentLength
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBodyLimit(t *testing.T) {
	t.Run("payload within limit passes", func(t *testing.T) {
		w := postBody(bodyLimitRouter(1024), `{"concept": "one time"}`, 23)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("declared length over limit is rejected up front", func(t *testing.T) {
		w := postBody(bodyLimitRouter(100), strings.Repeat("x", 200), 200)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_BAD_REQUEST")
	})

	t.Run("bodyless GET is unaffected", func(t *testing.T) {
		router := gin.New()
		router.Use(BodyLimit(10))
		router.GET("/charging/orders", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/charging/orders", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("streaming body without length is cut off while reading", func(t *testing.T) {
		// No Content-Length, so the middleware cannot reject up front and
		// the MaxBytesReader wrapper has to stop the handler instead.
		router := gin.New()
		router.Use(BodyLimit(50))
		router.POST("/charging/orders", func(c *gin.Context) {
			if _, err := io.ReadAll(c.Request.Body); err != nil {
				c.String(http.StatusBadRequest, "body too large")
				return
			}
			c.String(http.StatusOK, "ok")
		})

		w := postBody(router, strings.Repeat("x", 100), -1)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
