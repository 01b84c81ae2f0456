package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/msomdec/agro-iam/internal/domain"
	"github.com/msomdec/agro-iam/internal/geo"
	"github.com/msomdec/agro-iam/internal/handler"
	"github.com/msomdec/agro-iam/internal/service"
)

// fakeLocations records the IPs it is asked about and answers with a fixed location.
type fakeLocations struct {
	mu       sync.Mutex
	location string
	ips      []string
}

func (f *fakeLocations) Resolve(_ context.Context, ip string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ips = append(f.ips, ip)
	return f.location
}

func (f *fakeLocations) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ips...)
}

func newTestServer(t *testing.T, locations domain.LocationResolver, limiter service.Limiter) *httptest.Server {
	t.Helper()
	auth, users := newTestServices(t)

	srv := httptest.NewServer(handler.NewRouter(handler.Dependencies{
		Auth:           auth,
		Users:          users,
		Locations:      locations,
		Limiter:        limiter,
		AllowedOrigins: []string{"https://agro.example.com"},
		TokenTTL:       time.Hour,
	}))
	t.Cleanup(srv.Close)
	return srv
}

type apiResponse struct {
	status int
	header http.Header
	body   map[string]any
}

func (r apiResponse) user(t *testing.T) map[string]any {
	t.Helper()
	u, ok := r.body["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object in body, got %v", r.body)
	}
	return u
}

func doJSON(t *testing.T, method, url, token string, body any, headers map[string]string) apiResponse {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	out := apiResponse{status: resp.StatusCode, header: resp.Header}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(bytes.TrimSpace(raw)) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out.body); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return out
}

func signUpBody(name string) map[string]string {
	return map[string]string{
		"userName":      name,
		"email":         name + "@example.com",
		"password":      "secret1",
		"phoneNumber":   "+51987654321",
		"identificator": "12345678",
	}
}

func signIn(t *testing.T, baseURL, name string) (int64, string) {
	t.Helper()
	resp := doJSON(t, http.MethodPost, baseURL+"/api/v1/users/sign-in", "", map[string]string{
		"email":    name + "@example.com",
		"password": "secret1",
	}, nil)
	if resp.status != http.StatusOK {
		t.Fatalf("sign-in: expected 200, got %d (%v)", resp.status, resp.body)
	}
	return int64(resp.body["id"].(float64)), resp.body["token"].(string)
}

func TestSignUp_ResolvesLocationFromForwardedIP(t *testing.T) {
	locations := &fakeLocations{location: "Arequipa, Peru"}
	srv := newTestServer(t, locations, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/sign-up", "", signUpBody("rosa"), map[string]string{
		"X-Forwarded-For": "203.0.113.9, 10.0.0.1",
	})

	if resp.status != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.status, resp.body)
	}
	user := resp.user(t)
	if user["location"] != "Arequipa, Peru" {
		t.Fatalf("expected location in response, got %v", user["location"])
	}
	if user["userName"] != "rosa" || user["identificator"] != "12345678" {
		t.Fatalf("unexpected user body: %v", user)
	}
	if _, ok := user["password"]; ok {
		t.Fatal("password must not be exposed")
	}

	calls := locations.calls()
	if len(calls) != 1 || calls[0] != "203.0.113.9" {
		t.Fatalf("expected one lookup for 203.0.113.9, got %v", calls)
	}
}

func TestSignUp_FallsBackToSocketAddress(t *testing.T) {
	locations := &fakeLocations{location: geo.DefaultLocation}
	srv := newTestServer(t, locations, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/sign-up", "", signUpBody("socket"), map[string]string{
		"X-Forwarded-For": "unknown",
	})
	if resp.status != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.status, resp.body)
	}

	calls := locations.calls()
	if len(calls) != 1 || calls[0] != "127.0.0.1" {
		t.Fatalf("expected lookup for the socket address, got %v", calls)
	}
}

func TestSignUp_Errors(t *testing.T) {
	srv := newTestServer(t, &fakeLocations{location: "Lima, Peru"}, nil)
	url := srv.URL + "/api/v1/users/sign-up"

	if resp := doJSON(t, http.MethodPost, url, "", signUpBody("dup"), nil); resp.status != http.StatusCreated {
		t.Fatalf("first sign-up: expected 201, got %d", resp.status)
	}

	shortDNI := signUpBody("short")
	shortDNI["identificator"] = "1234"
	noPrefix := signUpBody("prefix")
	noPrefix["phoneNumber"] = "987654321"
	dupUsername := signUpBody("dup")
	dupUsername["email"] = "other@example.com"

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"malformed JSON", "{not json", http.StatusBadRequest},
		{"short DNI", shortDNI, http.StatusUnprocessableEntity},
		{"phone without prefix", noPrefix, http.StatusUnprocessableEntity},
		{"duplicate email", signUpBody("dup"), http.StatusConflict},
		{"duplicate username", dupUsername, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, url, "", tt.body, nil)
			if resp.status != tt.wantStatus {
				t.Fatalf("expected %d, got %d (%v)", tt.wantStatus, resp.status, resp.body)
			}
			if resp.body["error"] == nil {
				t.Fatalf("expected error message, got %v", resp.body)
			}
		})
	}
}

func TestSignIn(t *testing.T) {
	srv := newTestServer(t, &fakeLocations{}, nil)
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/sign-up", "", signUpBody("maria"), nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/sign-in", "", map[string]string{
		"email":    "maria@example.com",
		"password": "secret1",
	}, nil)
	if resp.status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", resp.status, resp.body)
	}
	if tok, _ := resp.body["token"].(string); tok == "" {
		t.Fatal("expected token in body")
	}
	if resp.body["userName"] != "maria" {
		t.Fatalf("expected userName maria, got %v", resp.body["userName"])
	}
	if !strings.Contains(resp.header.Get("Set-Cookie"), "auth_token=") {
		t.Fatal("expected auth_token cookie")
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/sign-in", "", map[string]string{
		"email":    "maria@example.com",
		"password": "wrong-password",
	}, nil)
	if resp.status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.status)
	}
}

func TestSignIn_RateLimited(t *testing.T) {
	tb := service.NewTokenBucket(0, 2)
	t.Cleanup(tb.Stop)
	srv := newTestServer(t, &fakeLocations{}, tb)

	body := map[string]string{"email": "nobody@example.com", "password": "secret1"}

	// Every attempt claims a different origin; all arrive from the same peer.
	limited := 0
	for i := range 10 {
		headers := map[string]string{"X-Forwarded-For": "203.0.113." + strconv.Itoa(i+1)}
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/sign-in", "", body, headers)
		switch {
		case i < 2 && resp.status != http.StatusUnauthorized:
			t.Fatalf("request %d: expected 401, got %d", i+1, resp.status)
		case resp.status == http.StatusTooManyRequests:
			limited++
		}
	}
	if limited != 8 {
		t.Fatalf("expected 8 of 10 sign-in attempts to be limited, got %d", limited)
	}
}

func TestUserLifecycle(t *testing.T) {
	srv := newTestServer(t, &fakeLocations{location: "Trujillo, Peru"}, nil)
	base := srv.URL + "/api/v1/users/"

	doJSON(t, http.MethodPost, base+"sign-up", "", signUpBody("owner"), nil)
	doJSON(t, http.MethodPost, base+"sign-up", "", signUpBody("other"), nil)
	ownerID, token := signIn(t, srv.URL, "owner")
	otherID, _ := signIn(t, srv.URL, "other")
	owner := strconv.FormatInt(ownerID, 10)
	other := strconv.FormatInt(otherID, 10)

	// Reading requires a token.
	if resp := doJSON(t, http.MethodGet, base+owner, "", nil, nil); resp.status != http.StatusUnauthorized {
		t.Fatalf("GET without token: expected 401, got %d", resp.status)
	}

	resp := doJSON(t, http.MethodGet, base+owner, token, nil, nil)
	if resp.status != http.StatusOK {
		t.Fatalf("GET self: expected 200, got %d", resp.status)
	}
	if resp.user(t)["location"] != "Trujillo, Peru" {
		t.Fatalf("expected stored location, got %v", resp.user(t)["location"])
	}

	if resp := doJSON(t, http.MethodGet, base+"99999", token, nil, nil); resp.status != http.StatusNotFound {
		t.Fatalf("GET unknown: expected 404, got %d", resp.status)
	}
	if resp := doJSON(t, http.MethodGet, base+"abc", token, nil, nil); resp.status != http.StatusBadRequest {
		t.Fatalf("GET bad id: expected 400, got %d", resp.status)
	}

	// Profile updates are limited to the caller's own account.
	update := map[string]string{"phoneNumber": "+5491122334455"}
	if resp := doJSON(t, http.MethodPut, base+other+"/profile", token, update, nil); resp.status != http.StatusForbidden {
		t.Fatalf("PUT other profile: expected 403, got %d", resp.status)
	}
	resp = doJSON(t, http.MethodPut, base+owner+"/profile", token, update, nil)
	if resp.status != http.StatusOK {
		t.Fatalf("PUT profile: expected 200, got %d (%v)", resp.status, resp.body)
	}
	if resp.user(t)["phoneNumber"] != "+5491122334455" {
		t.Fatalf("expected updated phone, got %v", resp.user(t)["phoneNumber"])
	}
	if resp := doJSON(t, http.MethodPut, base+owner+"/profile", token, map[string]string{"email": "other@example.com"}, nil); resp.status != http.StatusConflict {
		t.Fatalf("PUT duplicate email: expected 409, got %d", resp.status)
	}

	// Password change verifies the current password.
	if resp := doJSON(t, http.MethodPut, base+owner+"/password", token, map[string]string{
		"currentPassword": "nope", "newPassword": "secret2",
	}, nil); resp.status != http.StatusUnauthorized {
		t.Fatalf("PUT password wrong current: expected 401, got %d", resp.status)
	}
	if resp := doJSON(t, http.MethodPut, base+owner+"/password", token, map[string]string{
		"currentPassword": "secret1", "newPassword": "abc",
	}, nil); resp.status != http.StatusUnprocessableEntity {
		t.Fatalf("PUT password too short: expected 422, got %d", resp.status)
	}
	if resp := doJSON(t, http.MethodPut, base+owner+"/password", token, map[string]string{
		"currentPassword": "secret1", "newPassword": "secret2",
	}, nil); resp.status != http.StatusOK {
		t.Fatalf("PUT password: expected 200, got %d", resp.status)
	}

	// Deletion.
	if resp := doJSON(t, http.MethodDelete, base+other, token, nil, nil); resp.status != http.StatusForbidden {
		t.Fatalf("DELETE other: expected 403, got %d", resp.status)
	}
	if resp := doJSON(t, http.MethodDelete, base+owner, token, nil, nil); resp.status != http.StatusNoContent {
		t.Fatalf("DELETE self: expected 204, got %d", resp.status)
	}
	if resp := doJSON(t, http.MethodGet, base+owner, token, nil, nil); resp.status != http.StatusUnauthorized {
		t.Fatalf("GET after delete: expected 401, got %d", resp.status)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv := newTestServer(t, &fakeLocations{}, nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/users/sign-in", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Origin", "https://agro.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://agro.example.com" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}
}

// TestSignUp_WithGeoResolver runs registration against a real resolver backed by
// a stub provider, including the failure path where the account is still created.
func TestSignUp_WithGeoResolver(t *testing.T) {
	tests := []struct {
		name         string
		provider     http.HandlerFunc
		wantLocation string
	}{
		{
			name: "resolved",
			provider: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, `{"ip":"190.12.34.56","city":"Lima","region":"Lima","country_name":"Peru"}`)
			},
			wantLocation: "Lima, Peru",
		},
		{
			name: "provider down",
			provider: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantLocation: geo.DefaultLocation,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := make(chan string, 1)
			provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case paths <- r.URL.Path:
				default:
				}
				tt.provider(w, r)
			}))
			t.Cleanup(provider.Close)

			reg := prometheus.NewRegistry()
			resolver := geo.NewResolver(
				geo.NewIPAPI(geo.NewHTTPClient(time.Second), provider.URL, ""),
				geo.WithTimeout(time.Second),
				geo.WithLogger(slog.New(slog.DiscardHandler)),
				geo.WithMetrics(geo.NewMetrics(reg)),
			)

			auth, users := newTestServices(t)
			srv := httptest.NewServer(handler.NewRouter(handler.Dependencies{
				Auth:      auth,
				Users:     users,
				Locations: resolver,
				Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				TokenTTL:  time.Hour,
			}))
			t.Cleanup(srv.Close)

			name := "geo" + strconv.Itoa(i)
			resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/sign-up", "", signUpBody(name), map[string]string{
				"X-Forwarded-For": "190.12.34.56",
			})
			if resp.status != http.StatusCreated {
				t.Fatalf("expected 201, got %d (%v)", resp.status, resp.body)
			}
			if got := resp.user(t)["location"]; got != tt.wantLocation {
				t.Fatalf("expected location %q, got %v", tt.wantLocation, got)
			}
			select {
			case got := <-paths:
				if got != "/190.12.34.56/json/" {
					t.Fatalf("unexpected provider path %q", got)
				}
			default:
				t.Fatal("expected the provider to be called")
			}

			metrics, err := http.Get(srv.URL + "/metrics")
			if err != nil {
				t.Fatalf("GET /metrics: %v", err)
			}
			defer metrics.Body.Close()
			body, _ := io.ReadAll(metrics.Body)
			if !strings.Contains(string(body), "agro_iam_geo_lookups_total") {
				t.Fatalf("expected geo lookup counter in metrics output")
			}
		})
	}
}
