package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"einkauf/internal/backend"
	"einkauf/internal/core"
	"einkauf/internal/localstore"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	local, err := localstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	be := &backend.Result{
		Type:    backend.LocalBackend,
		Local:   local,
		Cleanup: func() error { return nil },
	}
	srv := NewServer(":0", be, Options{})
	t.Cleanup(func() {
		srv.cacheManager.Stop()
		srv.rateLimiter.stop()
	})
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestCategoryLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"Obst"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created core.Category
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == "" || created.Name != "Obst" {
		t.Fatalf("unexpected category: %+v", created)
	}

	// Duplicate names are rejected case-insensitively.
	rr = do(t, srv, http.MethodPost, "/api/categories", `{"name":"obst"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate status=%d", rr.Code)
	}

	// Listing ensures the reserved Pfand category.
	rr = do(t, srv, http.MethodGet, "/api/categories", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	var cats []core.Category
	if err := json.Unmarshal(rr.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	names := map[string]bool{}
	for _, c := range cats {
		names[c.Name] = true
	}
	if !names["Obst"] || !names[core.PfandName] {
		t.Fatalf("list missing categories: %v", names)
	}

	rr = do(t, srv, http.MethodPost, "/api/categories", `{"name":"Pfand"}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("reserved create status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/api/categories/"+created.ID, `{"name":"Gemüse"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("rename status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodDelete, "/api/categories/"+created.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodDelete, "/api/categories/"+created.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete again status=%d", rr.Code)
	}
}

func TestPurchaseFlowAndDashboard(t *testing.T) {
	srv := newTestServer(t)

	body := `{
		"date": "2026-08-15",
		"marketName": "Rewe",
		"items": [
			{"itemName": "Apfel", "quantity": 2, "unitPrice": 0.8},
			{"itemName": "Brot", "quantity": 1, "unitPrice": 2.3}
		]
	}`
	rr := do(t, srv, http.MethodPost, "/api/purchases", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created core.Purchase
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.TotalAmount != 3.90 {
		t.Fatalf("total = %v, want 3.90", created.TotalAmount)
	}

	rr = do(t, srv, http.MethodGet, "/api/purchases", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status=%d", rr.Code)
	}
	var purchases []core.Purchase
	if err := json.Unmarshal(rr.Body.Bytes(), &purchases); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(purchases) != 1 || len(purchases[0].Items) != 2 {
		t.Fatalf("unexpected purchases: %+v", purchases)
	}

	for _, path := range []string{
		"/api/dashboard/summary",
		"/api/dashboard/daily",
		"/api/dashboard/monthly",
		"/api/dashboard/month",
		"/api/dashboard/month?cursor=2026-08",
		"/api/dashboard/top-items",
		"/api/dashboard/categories",
	} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}

	// Price progression requires an item id.
	rr = do(t, srv, http.MethodGet, "/api/dashboard/price-progression", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("price progression without item status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodDelete, "/api/purchases/"+created.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodDelete, "/api/purchases/"+created.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete again status=%d", rr.Code)
	}
}

func TestPurchaseValidation(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"no line items", `{"date":"2026-08-15","items":[]}`, http.StatusUnprocessableEntity},
		{"zero quantity", `{"date":"2026-08-15","items":[{"itemName":"Apfel","quantity":0,"unitPrice":1}]}`, http.StatusUnprocessableEntity},
		{"negative price", `{"date":"2026-08-15","items":[{"itemName":"Apfel","quantity":1,"unitPrice":-1}]}`, http.StatusUnprocessableEntity},
		{"unknown field", `{"date":"2026-08-15","bogus":true,"items":[{"itemName":"Apfel","quantity":1,"unitPrice":1}]}`, http.StatusBadRequest},
		{"garbage body", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/purchases", tc.body)
			if rr.Code != tc.want {
				t.Fatalf("status=%d, want %d (body %s)", rr.Code, tc.want, rr.Body.String())
			}
		})
	}
}

func TestRemoteModeRequiresBearerToken(t *testing.T) {
	local, err := localstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	be := &backend.Result{
		Type:    backend.RemoteBackend,
		Local:   local,
		Cleanup: func() error { return nil },
	}
	srv := NewServer(":0", be, Options{})
	t.Cleanup(func() {
		srv.cacheManager.Stop()
		srv.rateLimiter.stop()
	})

	rr := do(t, srv, http.MethodGet, "/api/purchases", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rr.Code)
	}
}

func TestMigrationUnavailableOnLocalBackend(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/migration/preflight", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", rr.Code)
	}
}

func TestAccountsUnavailableOnLocalBackend(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/auth/register", `{"email":"a@b.c","password":"longenough"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", rr.Code)
	}
}

func TestMutationRateLimit(t *testing.T) {
	srv := newTestServer(t)

	var limited bool
	for i := 0; i < requestsPerMinute+1; i++ {
		body := fmt.Sprintf(`{"name":"Kat %d"}`, i)
		rr := do(t, srv, http.MethodPost, "/api/categories", body)
		if rr.Code == http.StatusTooManyRequests {
			limited = true
			if got := rr.Header().Get("Retry-After"); got != "60" {
				t.Fatalf("Retry-After = %q", got)
			}
			break
		}
	}
	if !limited {
		t.Fatal("mutations were never rate limited")
	}
}
