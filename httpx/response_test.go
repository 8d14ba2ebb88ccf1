package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, http.StatusBadRequest, "validation_failed", map[string]string{"name": "required"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"error":"validation_failed"`) || !strings.Contains(body, `"name":"required"`) {
		t.Fatalf("body = %s", body)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","typo":"y"}`))
	req.Header.Set("Content-Type", "application/json")
	if err := Decode(req, &dst); err == nil {
		t.Fatal("unknown field accepted")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "text/plain")
	if err := Decode(req, &dst); err == nil {
		t.Fatal("wrong content type accepted")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	if err := Decode(req, &dst); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dst.Name != "x" {
		t.Fatalf("name = %q", dst.Name)
	}
}
