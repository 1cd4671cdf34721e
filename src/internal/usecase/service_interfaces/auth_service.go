package service_interfaces

import (
	"context"

	"github.com/api-sage/stable-wallet/src/internal/adapter/http/models"
	"github.com/api-sage/stable-wallet/src/internal/commons"
)

type AuthService interface {
	Login(ctx context.Context, req models.LoginRequest) (commons.Response[models.LoginResponse], error)
	ResolveCaller(ctx context.Context, credential string) (string, error)
}
