package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursekart/model"
	"github.com/sahilchouksey/coursekart/utils/auth"
	"github.com/sahilchouksey/coursekart/utils/response"
	"gorm.io/gorm"
)

// AuthMiddleware handles JWT authentication. Beyond signature validation it
// checks the per-token blacklist and the user's token version, so a stolen
// token dies with logout or a credential reset.
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	db               *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: auth.NewBlacklistService(db),
		db:               db,
	}
}

// authenticate validates the bearer token end to end and loads the user.
// On failure it writes the error response and reports ok=false; callers must
// stop the chain without calling Next.
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Claims, *model.User, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		response.Unauthorized(c, "Missing authorization token")
		return nil, nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		response.Unauthorized(c, "Invalid authorization format")
		return nil, nil, false
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		if err == auth.ErrExpiredToken {
			response.Unauthorized(c, "Token has expired")
		} else {
			response.Unauthorized(c, "Invalid token")
		}
		return nil, nil, false
	}

	if claims.TokenType != auth.TokenTypeAccess {
		response.Unauthorized(c, "Invalid token type")
		return nil, nil, false
	}

	isRevoked, err := m.blacklistService.IsTokenRevoked(c.Context(), claims.ID)
	if err != nil {
		response.InternalServerError(c, "Failed to check token status")
		return nil, nil, false
	}
	if isRevoked {
		response.Unauthorized(c, "Token has been revoked")
		return nil, nil, false
	}

	var user model.User
	if err := m.db.First(&user, claims.UserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			response.Unauthorized(c, "User not found")
		} else {
			response.InternalServerError(c, "Failed to load user")
		}
		return nil, nil, false
	}

	if user.TokenVersion != claims.TokenVersion {
		response.Unauthorized(c, "Token has been invalidated")
		return nil, nil, false
	}

	return claims, &user, true
}

func storeIdentity(c *fiber.Ctx, claims *auth.Claims, user *model.User) {
	c.Locals("user_id", claims.UserID)
	c.Locals("user_role", claims.Role)
	c.Locals("claims", claims)
	c.Locals("user", user)
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, ok := m.authenticate(c)
		if !ok {
			return nil
		}

		storeIdentity(c, claims, user)
		return c.Next()
	}
}

// RequireAdmin is middleware that requires a valid token with the admin role
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, ok := m.authenticate(c)
		if !ok {
			return nil
		}

		if claims.Role != model.RoleAdmin {
			return response.Forbidden(c, "Admin access required")
		}

		storeIdentity(c, claims, user)
		return c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	userID := c.Locals("user_id")
	if userID == nil {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	user := c.Locals("user")
	if user == nil {
		return nil, false
	}
	u, ok := user.(*model.User)
	return u, ok
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims := c.Locals("claims")
	if claims == nil {
		return nil, false
	}
	claimsData, ok := claims.(*auth.Claims)
	return claimsData, ok
}
