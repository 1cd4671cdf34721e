package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/adapter/http/models"
	"github.com/api-sage/stable-wallet/src/internal/commons"
)

type AuthService interface {
	Login(ctx context.Context, req models.LoginRequest) (commons.Response[models.LoginResponse], error)
}

type AuthController struct {
	service AuthService
}

func NewAuthController(service AuthService) *AuthController {
	return &AuthController{service: service}
}

// RegisterRoutes mounts /login. It is always public, so authMiddleware is ignored.
func (c *AuthController) RegisterRoutes(mux *http.ServeMux, _ func(http.Handler) http.Handler) {
	mux.Handle("/login", http.HandlerFunc(c.login))
}

func (c *AuthController) login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		methodNotAllowed[models.LoginResponse](w, r, start)
		return
	}

	var req models.LoginRequest
	if !decodeBody[models.LoginResponse](w, r, &req, start) {
		return
	}
	logRequest(r, req)

	response, err := c.service.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, response, err, start)
		return
	}

	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
