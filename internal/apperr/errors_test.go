package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-catalog/internal/logging"
)

func TestKindStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusBadRequest},
		{Auth("x"), http.StatusUnauthorized},
		{TokenExpired("x"), http.StatusUnauthorized},
		{TokenInvalid("x"), http.StatusUnauthorized},
		{Unauthenticated("x"), http.StatusUnauthorized},
		{PermissionDenied("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.err.Kind.Status(); got != tt.want {
			t.Fatalf("%s status = %d, want %d", tt.err.Kind, got, tt.want)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("update book: %w", PermissionDenied("Permission denied!"))
	if KindOf(err) != KindPermissionDenied {
		t.Fatalf("KindOf = %s", KindOf(err))
	}
	if !errors.Is(err, &Error{Kind: KindPermissionDenied}) {
		t.Fatal("errors.Is should match on kind")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatal("plain errors are internal")
	}
}

func TestRespondHidesInternalCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Respond(c, logging.Discard(), errors.New("connection refused: 10.0.0.1"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["error"] != InternalMessage {
		t.Fatalf("error = %q", body["error"])
	}
	if !c.IsAborted() {
		t.Fatal("context should be aborted")
	}
}

func TestRespondUsesMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Respond(c, nil, NotFound("Book not found!"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != `{"error":"Book not found!"}` {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
