package router

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/events"
	"github.com/api-sage/stable-wallet/src/internal/adapter/http/controller"
	"github.com/api-sage/stable-wallet/src/internal/adapter/http/middleware"
	"github.com/api-sage/stable-wallet/src/internal/adapter/ratelimit"
	"github.com/api-sage/stable-wallet/src/internal/adapter/repository/memory"
	"github.com/api-sage/stable-wallet/src/internal/domain"
	"github.com/api-sage/stable-wallet/src/internal/metrics"
	"github.com/api-sage/stable-wallet/src/internal/security"
	"github.com/api-sage/stable-wallet/src/internal/usecase/services"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type walletAPI struct {
	t       *testing.T
	handler http.Handler
}

func newWalletAPI(t *testing.T) *walletAPI {
	t.Helper()

	rate, err := domain.ParseRate("1/655")
	if err != nil {
		t.Fatalf("parse rate: %v", err)
	}
	settings := services.LedgerSettings{
		FiatToStable:     rate,
		StableToFiat:     rate.Inverse(),
		FiatScale:        2,
		StableScale:      6,
		WithdrawalPolicy: domain.WithdrawalDebitOnly,
		TransferMode:     domain.TransferModeImmediate,
	}

	store := memory.NewLedgerStore()
	m := metrics.New()
	emitter := events.NewEmitter(events.NopPublisher{}, "wallet.ledger.events")
	hasher := security.PasswordHasher{Cost: bcrypt.MinCost}
	tokens := security.NewTokenIssuer("router-test-secret-value", time.Hour, "stable-wallet")

	accountService := services.NewAccountService(store, hasher, settings, emitter, m)
	transferService := services.NewTransferService(store, settings, emitter, m)
	authService := services.NewAuthService(store, hasher, tokens, ratelimit.NewMemory(5, time.Minute), m)

	handler := New(
		controller.NewAccountController(accountService),
		controller.NewAuthController(authService),
		controller.NewTransferController(transferService),
		controller.NewAdminController(transferService, accountService),
		controller.NewHealthController(store),
		middleware.BearerAuth(authService),
		middleware.BasicAuth("WalletOps", "WalletOpsKey001"),
		m,
		[]string{"*"},
	)
	return &walletAPI{t: t, handler: handler}
}

func (a *walletAPI) do(method, path, authorization, body string, wantStatus int) envelope {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	if rr.Code != wantStatus {
		a.t.Fatalf("%s %s: expected %d, got %d: %s", method, path, wantStatus, rr.Code, rr.Body.String())
	}

	var out envelope
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			a.t.Fatalf("%s %s: decode body: %v", method, path, err)
		}
	}
	return out
}

func (a *walletAPI) login(key string) string {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/login", "", `{"key":"`+key+`","password":"password1"}`, http.StatusOK)
	var data struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.AccessToken == "" {
		a.t.Fatalf("login %s: missing token (%v)", key, err)
	}
	return "Bearer " + data.AccessToken
}

func TestWalletScenarioOverHTTP(t *testing.T) {
	api := newWalletAPI(t)

	api.do(http.MethodPost, "/register", "", `{"key":"alice","password":"password1"}`, http.StatusCreated)
	api.do(http.MethodPost, "/register", "", `{"key":"bob","password":"password1"}`, http.StatusCreated)
	api.do(http.MethodPost, "/register", "", `{"key":"bob","password":"password1"}`, http.StatusConflict)
	api.do(http.MethodPost, "/register", "", `{"key":"dave","password":"`+strings.Repeat("p", 80)+`"}`, http.StatusBadRequest)

	alice := api.login("alice")
	api.do(http.MethodPost, "/login", "", `{"key":"alice","password":"wrong-password"}`, http.StatusUnauthorized)

	api.do(http.MethodPost, "/deposit", alice, `{"phoneNumber":"0700000001","amount":"100"}`, http.StatusBadRequest)
	api.do(http.MethodPost, "/phone-numbers", alice, `{"phoneNumber":"0700000001"}`, http.StatusOK)
	api.do(http.MethodPost, "/deposit", alice, `{"phoneNumber":"0700000001","amount":"100"}`, http.StatusOK)
	api.do(http.MethodPost, "/deposit", alice, `{"phoneNumber":"0700000001","amount":"1e2000000"}`, http.StatusBadRequest)
	api.do(http.MethodPost, "/deposit", alice, `{"phoneNumber":"0700000001","amount":"1000000000000000"}`, http.StatusBadRequest)
	api.do(http.MethodPost, "/convert", alice, `{"amount":"40"}`, http.StatusOK)
	api.do(http.MethodPost, "/convert", alice, `{"amount":"1000"}`, http.StatusUnprocessableEntity)
	api.do(http.MethodPost, "/transfer", alice, `{"receiver":"bob","amount":"0.05"}`, http.StatusOK)
	api.do(http.MethodPost, "/transfer", alice, `{"receiver":"alice","amount":"0.01"}`, http.StatusBadRequest)
	api.do(http.MethodPost, "/transfer", alice, `{"receiver":"ghost","amount":"0.01"}`, http.StatusNotFound)

	resp := api.do(http.MethodGet, "/account", alice, "", http.StatusOK)
	var account struct {
		BalanceFiat   string `json:"balanceFiat"`
		BalanceStable string `json:"balanceStable"`
	}
	if err := json.Unmarshal(resp.Data, &account); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if account.BalanceFiat != "60.00" || account.BalanceStable != "0.011069" {
		t.Fatalf("unexpected alice balances %+v", account)
	}

	bob := api.login("bob")
	resp = api.do(http.MethodGet, "/transactions", bob, "", http.StatusOK)
	var txns []struct {
		Sender string `json:"sender"`
		Amount string `json:"amount"`
	}
	if err := json.Unmarshal(resp.Data, &txns); err != nil {
		t.Fatalf("decode transactions: %v", err)
	}
	if len(txns) != 1 || txns[0].Sender != "alice" || txns[0].Amount != "0.050000" {
		t.Fatalf("unexpected bob transactions %+v", txns)
	}
}

func TestRouteGuards(t *testing.T) {
	api := newWalletAPI(t)
	admin := "Basic " + base64.StdEncoding.EncodeToString([]byte("WalletOps:WalletOpsKey001"))

	api.do(http.MethodGet, "/account", "", "", http.StatusUnauthorized)
	api.do(http.MethodGet, "/account", "Bearer forged.token.value", "", http.StatusUnauthorized)
	api.do(http.MethodGet, "/admin/transactions", "", "", http.StatusUnauthorized)
	api.do(http.MethodGet, "/admin/transactions", admin, "", http.StatusOK)
	api.do(http.MethodPost, "/admin/validate-transaction", admin, `{"index":0}`, http.StatusNotFound)

	api.do(http.MethodPost, "/register", "", `{"key":"carol","password":"password1"}`, http.StatusCreated)
	carol := api.login("carol")
	api.do(http.MethodGet, "/admin/transactions", carol, "", http.StatusUnauthorized)
	api.do(http.MethodDelete, "/admin/accounts?key=carol", admin, "", http.StatusOK)
	api.do(http.MethodGet, "/account", carol, "", http.StatusNotFound)
}

func TestPublicEndpoints(t *testing.T) {
	api := newWalletAPI(t)

	api.do(http.MethodGet, "/", "", "", http.StatusOK)
	api.do(http.MethodGet, "/healthz", "", "", http.StatusOK)
	api.do(http.MethodGet, "/swagger/openapi.json", "", "", http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "wallet_http_requests_total") {
		t.Fatalf("expected metrics exposition, got %d", rr.Code)
	}
	if rr.Header().Get(middleware.RequestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestCORSPreflight(t *testing.T) {
	api := newWalletAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/transfer", nil)
	req.Header.Set("Origin", "http://wallet-ui.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rr := httptest.NewRecorder()
	api.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected allow-all origin, got %v", rr.Header())
	}
}
