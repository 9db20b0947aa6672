package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
	weberrors "github.com/lk2023060901/xdooria-rates/pkg/web/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	cfg := DefaultConfig()
	cfg.Mode = gin.TestMode
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	return NewServer(cfg, logger.NewNoop())
}

type levelRequest struct {
	Level int32 `json:"level" binding:"gte=1"`
}

func TestServerRoutes(t *testing.T) {
	s := newTestServer()
	s.Router().GET("/players/:id", func(c *gin.Context) {
		id, ok := ParamInt64(c, "id")
		if !ok {
			return
		}
		Success(c, gin.H{"id": id})
	})
	s.Router().PUT("/level", func(c *gin.Context) {
		var req levelRequest
		if !BindAndValidate(c, &req) {
			return
		}
		Success(c, req)
	})
	s.Router().GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"路径参数", http.MethodGet, "/players/42", "", http.StatusOK, `"id":42`},
		{"路径参数无效", http.MethodGet, "/players/abc", "", http.StatusBadRequest, `"code":40001`},
		{"校验通过", http.MethodPut, "/level", `{"level":3}`, http.StatusOK, `"level":3`},
		{"校验失败", http.MethodPut, "/level", `{"level":0}`, http.StatusBadRequest, `"code":40001`},
		{"请求体无效", http.MethodPut, "/level", `{`, http.StatusBadRequest, "invalid request parameters"},
		{"panic 恢复", http.MethodGet, "/panic", "", http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestServerStartStop(t *testing.T) {
	s := newTestServer()

	assert.ErrorIs(t, s.GracefulStop(), ErrServerNotStarted)

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrServerAlreadyStarted)
	require.NoError(t, s.GracefulStop())
}

func TestCodeToStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, weberrors.CodeToStatus(weberrors.CodeOK))
	assert.Equal(t, http.StatusBadRequest, weberrors.CodeToStatus(weberrors.CodeInvalidParams))
	assert.Equal(t, http.StatusForbidden, weberrors.CodeToStatus(weberrors.CodeForbidden))
	assert.Equal(t, http.StatusNotFound, weberrors.CodeToStatus(weberrors.CodeNotFound))
	assert.Equal(t, http.StatusConflict, weberrors.CodeToStatus(weberrors.CodeConflict))
	assert.Equal(t, http.StatusServiceUnavailable, weberrors.CodeToStatus(weberrors.CodeUnavailable))
	assert.Equal(t, http.StatusInternalServerError, weberrors.CodeToStatus(weberrors.CodeInternalError))
}
