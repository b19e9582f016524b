package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newChecksumRouter() *gin.Engine {
	r := gin.New()
	r.GET("/ping", Checksum(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestChecksumRejectsMissingHeader(t *testing.T) {
	r := newChecksumRouter()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestChecksumRejectsMalformedHeader(t *testing.T) {
	r := newChecksumRouter()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(ChecksumHeader, "not-a-valid-checksum")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestChecksumAllowsWellFormedHeader(t *testing.T) {
	r := newChecksumRouter()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(ChecksumHeader, wellFormedChecksum(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}
}
