package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carenest-server/internal/config"
	"carenest-server/internal/models"
	"carenest-server/internal/utils"
)

const (
	contextUserKey   = "user"
	contextUserIDKey = "userID"
)

// AuthMiddleware resolves the bearer token to a live user record. A deleted
// account is rejected even while its token is still valid.
func AuthMiddleware(db *gorm.DB, cfg *config.Config, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			utils.Unauthorized(c, "No token provided")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(strings.TrimSpace(parts[1]), cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, "id = ?", claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.Unauthorized(c, "User not found")
			} else {
				log.Error("failed to load authenticated user", zap.String("user_id", claims.UserID), zap.Error(err))
				utils.InternalServerError(c, "Authentication error", err)
			}
			c.Abort()
			return
		}

		// Set user information in context for downstream handlers
		c.Set(contextUserKey, &user)
		c.Set(contextUserIDKey, user.ID)

		c.Next()
	}
}

// RequireRole lets only users with the given role through.
// It must run after AuthMiddleware.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUserFromContext(c)
		if !ok {
			utils.Unauthorized(c, "User not authenticated")
			c.Abort()
			return
		}
		if user.Role != role {
			utils.Forbidden(c, "Access denied. "+roleTitle(role)+" only.")
			c.Abort()
			return
		}
		c.Next()
	}
}

func roleTitle(role models.Role) string {
	r := string(role)
	if r == "" {
		return r
	}
	return strings.ToUpper(r[:1]) + r[1:]
}

// GetUserFromContext returns the user stored by AuthMiddleware.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

// Helper function to get user ID from context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(contextUserIDKey)
	if !exists {
		return "", false
	}
	idStr, ok := userID.(string)
	return idStr, ok
}
