package ingress

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth_PassthroughWhenUnconfigured(t *testing.T) {
	mw := APIKeyAuth("")(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAPIKeyAuth_RejectsMissingKey(t *testing.T) {
	mw := APIKeyAuth("secret")(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAPIKeyAuth_RejectsWrongKey(t *testing.T) {
	mw := APIKeyAuth("secret")(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAPIKeyAuth_AcceptsCorrectKey(t *testing.T) {
	mw := APIKeyAuth("secret")(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRateLimiter_AllowsUpToLimitThenRejects(t *testing.T) {
	rl := NewRateLimiter(2)
	mw := rl.Middleware(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected request %d to be allowed, got %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/incidents", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once over quota, got %d", rec.Code)
	}
}

func TestRateLimiter_TracksClientsIndependently(t *testing.T) {
	rl := NewRateLimiter(1)
	mw := rl.Middleware(okHandler())

	req1 := httptest.NewRequest(http.MethodGet, "/incidents", nil)
	req1.RemoteAddr = "10.0.0.1:1234"
	rec1 := httptest.NewRecorder()
	mw.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first client's first request to be allowed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/incidents", nil)
	req2.RemoteAddr = "10.0.0.2:1234"
	rec2 := httptest.NewRecorder()
	mw.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected second client's first request to be allowed independently, got %d", rec2.Code)
	}
}
