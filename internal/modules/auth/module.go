// Package auth wires auth & identity (C3) into the module registry. Its
// only HTTP-visible surface is the bearer-token middleware applied to
// the job API; token issuance is the responsibility of an external
// identity provider, so there is no register/login route here.
package auth

import (
	"context"
	"log/slog"

	"github.com/sparkjar/crew-orchestrator/internal/modules/auth/middleware"
	"github.com/sparkjar/crew-orchestrator/internal/modules/auth/utils"
	"github.com/sparkjar/crew-orchestrator/pkg/registry"
)

// AuthModule wires the JWT service and its middleware for use by other modules.
type AuthModule struct {
	authMiddleware *middleware.AuthMiddleware
	jwtService     *utils.JWTService
	logger         *slog.Logger
}

func NewAuthModule() *AuthModule {
	return &AuthModule{}
}

func (m *AuthModule) Name() string { return "auth" }

func (m *AuthModule) Init(ctx context.Context, deps registry.Dependencies) error {
	m.logger = deps.Logger.With("module", "auth")
	utils.SetJWTSecretKey(deps.Config.JWTSecret)
	utils.SetJWTIssuer(deps.Config.JWTIssuer)
	m.jwtService = utils.NewJWTService()
	m.authMiddleware = middleware.NewAuthMiddleware()
	m.logger.Info("auth module initialized")
	return nil
}

func (m *AuthModule) RegisterRoutes(router interface{}) {}

func (m *AuthModule) RegisterEventHandlers(bus interface{}) {}

func (m *AuthModule) Health() error { return nil }

// GetMiddleware returns the auth middleware for the server to wrap the
// job API router with.
func (m *AuthModule) GetMiddleware() *middleware.AuthMiddleware {
	return m.authMiddleware
}

// GetJWTService exposes the JWT service so the dispatch layer's token
// cache can mint internal tokens for the remote crew execution service.
func (m *AuthModule) GetJWTService() *utils.JWTService {
	return m.jwtService
}
