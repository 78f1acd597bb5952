//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"GlobalBooks/internal/auth"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

type stockResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Product map[string]any `json:"product"`
}

func TestSystem_E2E_StockUpdate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")
	token := writeToken(t)

	var products []map[string]any
	doJSON(t, http.MethodGet, baseURL+"/products", "", nil, &products, 200)
	if len(products) == 0 {
		t.Fatalf("expected non-empty products")
	}

	pid, _ := products[0]["id"].(string)
	if pid == "" {
		t.Fatalf("product id missing in response: %#v", products[0])
	}

	var updated stockResponse
	doJSON(t, http.MethodPut, baseURL+"/api/products/"+pid+"/stock", token, map[string]any{"quantity": 5}, &updated, 200)
	if !updated.Success || updated.Product["quantity"] != float64(5) {
		t.Fatalf("unexpected update response: %#v", updated)
	}

	var rejected stockResponse
	doJSON(t, http.MethodPut, baseURL+"/api/products/"+pid+"/stock", token, map[string]any{"quantity": -1}, &rejected, 400)
	if rejected.Success {
		t.Fatalf("negative quantity accepted: %#v", rejected)
	}

	var got map[string]any
	doJSON(t, http.MethodGet, baseURL+"/products/"+pid, "", nil, &got, 200)
	if got["quantity"] != float64(5) {
		t.Fatalf("quantity=%v want 5", got["quantity"])
	}

	doJSON(t, http.MethodPut, baseURL+"/api/products/does-not-exist/stock", token, map[string]any{"quantity": 1}, nil, 404)

	if os.Getenv("E2E_RESTART_BROKER") == "1" {
		restartComposeService(t, ctx, getenv("E2E_BROKER_SERVICE", "rabbitmq"))

		// The broker connection is gone now; stock updates must keep working.
		doJSON(t, http.MethodPut, baseURL+"/api/products/"+pid+"/stock", token, map[string]any{"quantity": 6}, &updated, 200)
		doJSON(t, http.MethodGet, baseURL+"/products/"+pid, "", nil, &got, 200)
		if got["quantity"] != float64(6) {
			t.Fatalf("quantity after broker restart=%v want 6", got["quantity"])
		}
	}
}

// writeToken mints a write-scoped token when the stack runs with JWT_SECRET.
func writeToken(t *testing.T) string {
	t.Helper()

	secret := os.Getenv("E2E_JWT_SECRET")
	if secret == "" {
		return ""
	}
	tok, err := auth.NewTokenMaker(secret).New("e2e", []string{auth.ScopeRead, auth.ScopeWrite}, 10*time.Minute)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return tok
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url, token string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
