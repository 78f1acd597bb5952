package kit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestWriteError_Shape(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/products/zzz", nil)

	WriteError(rec, req, http.StatusNotFound, "Product not found", map[string]any{"id": "zzz"})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != false || body["message"] != "Product not found" {
		t.Fatalf("body=%v", body)
	}
	if d, _ := body["details"].(map[string]any); d["id"] != "zzz" {
		t.Fatalf("details=%v", body["details"])
	}
	if _, ok := body["request_id"]; ok {
		t.Fatalf("request_id must be omitted without the RequestID middleware: %v", body)
	}
}

func TestNewLogger_Level(t *testing.T) {
	log, err := NewLogger("catalog", "debug")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if !log.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("debug level not enabled")
	}

	if _, err := NewLogger("catalog", "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
