package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/http/models"
	"github.com/api-sage/stable-wallet/src/internal/commons"
)

type AccountService interface {
	Register(ctx context.Context, req models.RegisterRequest) (commons.Response[models.AccountResponse], error)
	GetAccount(ctx context.Context, key string) (commons.Response[models.AccountResponse], error)
	AddPhoneNumber(ctx context.Context, key string, req models.PhoneNumberRequest) (commons.Response[models.AccountResponse], error)
	RemovePhoneNumber(ctx context.Context, key string, req models.PhoneNumberRequest) (commons.Response[models.AccountResponse], error)
	Deposit(ctx context.Context, key string, req models.DepositRequest) (commons.Response[models.BalanceResponse], error)
	Convert(ctx context.Context, key string, req models.ConvertRequest) (commons.Response[models.BalanceResponse], error)
	Withdraw(ctx context.Context, key string, req models.WithdrawRequest) (commons.Response[models.BalanceResponse], error)
}

type AccountController struct {
	service AccountService
}

func NewAccountController(service AccountService) *AccountController {
	return &AccountController{service: service}
}

// RegisterRoutes mounts the account routes. Registration is public, the rest go through authMiddleware.
func (c *AccountController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("/register", http.HandlerFunc(c.register))
	mux.Handle("/account", protect(c.getAccount, authMiddleware))
	mux.Handle("/phone-numbers", protect(c.phoneNumbers, authMiddleware))
	mux.Handle("/deposit", protect(c.deposit, authMiddleware))
	mux.Handle("/convert", protect(c.convert, authMiddleware))
	mux.Handle("/withdraw", protect(c.withdraw, authMiddleware))
}

func (c *AccountController) register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		methodNotAllowed[models.AccountResponse](w, r, start)
		return
	}

	var req models.RegisterRequest
	if !decodeBody[models.AccountResponse](w, r, &req, start) {
		return
	}
	logRequest(r, req)

	response, err := c.service.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, response, err, start)
		return
	}

	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *AccountController) getAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		methodNotAllowed[models.AccountResponse](w, r, start)
		return
	}

	key, ok := callerKey[models.AccountResponse](w, r, start)
	if !ok {
		return
	}

	response, err := c.service.GetAccount(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, response, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *AccountController) phoneNumbers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		methodNotAllowed[models.AccountResponse](w, r, start)
		return
	}

	key, ok := callerKey[models.AccountResponse](w, r, start)
	if !ok {
		return
	}

	var req models.PhoneNumberRequest
	if !decodeBody[models.AccountResponse](w, r, &req, start) {
		return
	}
	logRequest(r, req)

	var (
		response commons.Response[models.AccountResponse]
		err      error
	)
	if r.Method == http.MethodPost {
		response, err = c.service.AddPhoneNumber(r.Context(), key, req)
	} else {
		response, err = c.service.RemovePhoneNumber(r.Context(), key, req)
	}
	if err != nil {
		writeServiceError(w, r, response, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *AccountController) deposit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		methodNotAllowed[models.BalanceResponse](w, r, start)
		return
	}

	key, ok := callerKey[models.BalanceResponse](w, r, start)
	if !ok {
		return
	}

	var req models.DepositRequest
	if !decodeBody[models.BalanceResponse](w, r, &req, start) {
		return
	}
	logRequest(r, req)

	response, err := c.service.Deposit(r.Context(), key, req)
	if err != nil {
		writeServiceError(w, r, response, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *AccountController) convert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		methodNotAllowed[models.BalanceResponse](w, r, start)
		return
	}

	key, ok := callerKey[models.BalanceResponse](w, r, start)
	if !ok {
		return
	}

	var req models.ConvertRequest
	if !decodeBody[models.BalanceResponse](w, r, &req, start) {
		return
	}
	logRequest(r, req)

	response, err := c.service.Convert(r.Context(), key, req)
	if err != nil {
		writeServiceError(w, r, response, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *AccountController) withdraw(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		methodNotAllowed[models.BalanceResponse](w, r, start)
		return
	}

	key, ok := callerKey[models.BalanceResponse](w, r, start)
	if !ok {
		return
	}

	var req models.WithdrawRequest
	if !decodeBody[models.BalanceResponse](w, r, &req, start) {
		return
	}
	logRequest(r, req)

	response, err := c.service.Withdraw(r.Context(), key, req)
	if err != nil {
		writeServiceError(w, r, response, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
