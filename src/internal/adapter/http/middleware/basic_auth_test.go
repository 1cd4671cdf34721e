package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
)

func basicHeader(id, key string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(id+":"+key))
}

func TestBasicAuth_AllowsValidCredentials(t *testing.T) {
	mw := BasicAuth("WalletOps", "WalletOpsKey001")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/transactions", nil)
	req.Header.Set("Authorization", basicHeader("WalletOps", "WalletOpsKey001"))

	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestBasicAuth_RejectsInvalidCredentials(t *testing.T) {
	mw := BasicAuth("WalletOps", "WalletOpsKey001")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler must not run")
	})

	for _, header := range []string{"", basicHeader("WalletOps", "WrongKey"), "Bearer token"} {
		req := httptest.NewRequest(http.MethodGet, "/admin/transactions", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}

		rr := httptest.NewRecorder()
		mw(next).ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected status %d, got %d", header, http.StatusUnauthorized, rr.Code)
		}
		if rr.Header().Get("WWW-Authenticate") == "" {
			t.Fatalf("header %q: expected WWW-Authenticate challenge", header)
		}
	}
}

func TestBasicAuth_MissingConfiguration(t *testing.T) {
	mw := BasicAuth("", "")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/transactions", nil)
	req.Header.Set("Authorization", basicHeader("", ""))

	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
	}
}
