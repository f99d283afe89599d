package httptransport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"clinic-server-go/internal/platform/config"
	"clinic-server-go/internal/platform/logging"
)

func TestBuildRequiresConfigAndLogger(t *testing.T) {
	if _, err := Build(Options{}); err == nil {
		t.Fatal("expected Build to fail without config")
	}
	if _, err := Build(Options{Config: config.DefaultConfig()}); err == nil {
		t.Fatal("expected Build to fail without a logger")
	}
}

func TestBuildSecuredGroupGated(t *testing.T) {
	cfg := config.DefaultConfig()
	router, err := Build(Options{
		Config: cfg,
		Logger: logging.NewDiscard(),
		AuthMiddleware: func(c *gin.Context) {
			AbortError(c, http.StatusUnauthorized, "unauthorized")
		},
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	router.API.GET("/open", func(c *gin.Context) {
		RespondSuccess(c, http.StatusOK, nil, "")
	})
	router.Secured.GET("/closed", func(c *gin.Context) {
		RespondSuccess(c, http.StatusOK, nil, "")
	})

	w := httptest.NewRecorder()
	router.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/open", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("open route should pass, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/closed", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("secured route should be gated, got %d", w.Code)
	}
}
