package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/arise/pkg/logger"
	weberrors "github.com/lk2023060901/arise/pkg/web/errors"
	"github.com/lk2023060901/arise/pkg/web/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_ResponsesAndRecovery(t *testing.T) {
	s, err := NewServer(&Config{Mode: gin.TestMode, Addr: "127.0.0.1:0"}, logger.NewNoop())
	require.NoError(t, err)

	r := s.Router()
	r.GET("/ok", func(c *gin.Context) { Success(c, gin.H{"level": 3}) })
	r.GET("/conflict", func(c *gin.Context) { Error(c, weberrors.CodeOutOfSequence, "stage out of sequence") })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-1")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":0,"message":"ok","data":{"level":3},"request_id":"req-1"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServer_StartStop(t *testing.T) {
	s, err := NewServer(&Config{Mode: gin.TestMode, Addr: "127.0.0.1:0"}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
}

func TestCodeToStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, weberrors.CodeToStatus(weberrors.CodeOK))
	assert.Equal(t, http.StatusBadRequest, weberrors.CodeToStatus(weberrors.CodeInvalidParams))
	assert.Equal(t, http.StatusBadRequest, weberrors.CodeToStatus(weberrors.CodeInsufficientResource))
	assert.Equal(t, http.StatusForbidden, weberrors.CodeToStatus(weberrors.CodeNotEligible))
	assert.Equal(t, http.StatusNotFound, weberrors.CodeToStatus(weberrors.CodeNotFound))
	assert.Equal(t, http.StatusConflict, weberrors.CodeToStatus(weberrors.CodeMaxReached))
	assert.Equal(t, http.StatusInternalServerError, weberrors.CodeToStatus(weberrors.CodeInternalError))
}
