package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/infrastructure/auth"
)

// AuthHandler issues access tokens. Token minting is only exposed in
// non-production environments; production deployments are expected to
// validate tokens issued by an external identity provider.
type AuthHandler struct {
	BaseHandler
	jwtService *auth.JWTService
	enabled    bool
}

// NewAuthHandler creates a new AuthHandler. Pass enabled=false to keep the
// route registered but respond 403 (production).
func NewAuthHandler(jwtService *auth.JWTService, enabled bool) *AuthHandler {
	return &AuthHandler{
		jwtService: jwtService,
		enabled:    enabled,
	}
}

// TokenRequest asks for a token for the given actor
type TokenRequest struct {
	ActorID string `json:"actor_id" binding:"required,uuid"`
	Role    string `json:"role" binding:"required,oneof=OPERATOR BUYER SUPPLIER PROVIDER"`
}

// TokenResponse carries an issued access token
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IssueToken godoc
// @Summary      Issue an access token
// @Description  Mints a token for the given actor and role; disabled in production
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body TokenRequest true "Actor identity"
// @Success      200 {object} dto.Response{data=TokenResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/token [post]
func (h *AuthHandler) IssueToken(c *gin.Context) {
	if !h.enabled {
		h.Forbidden(c, "Token minting is disabled in this environment")
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	actorID, err := uuid.Parse(req.ActorID)
	if err != nil {
		h.BadRequest(c, "Invalid actor ID format")
		return
	}

	token, err := h.jwtService.GenerateToken(shared.Actor{ID: actorID, Role: shared.Role(req.Role)})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
	})
}
