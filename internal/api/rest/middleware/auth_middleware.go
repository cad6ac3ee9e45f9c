package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

const userContextKey = "currentUser"

// AuthMiddleware разбирает Bearer JWT и кладет пользователя в контекст
type AuthMiddleware struct {
	secret string
	log    *logger.Logger
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(secret string, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: secret, log: log}
}

// OptionalAuth разбирает токен, если он есть. Отсутствующий или
// невалидный токен не ошибка: запрос продолжается анонимным.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := m.userFromRequest(c); user != nil {
			c.Set(userContextKey, user)
		}
		c.Next()
	}
}

// RequireAuth отклоняет запросы без валидного токена.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := m.userFromRequest(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// userFromRequest извлекает пользователя из заголовка Authorization.
func (m *AuthMiddleware) userFromRequest(c *gin.Context) *domain.User {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil
	}

	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenString == "" {
		return nil
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return []byte(m.secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		m.log.Debugw("Rejected JWT, continuing as anonymous", "error", err)
		return nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return nil
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		m.log.Debugw("JWT subject is not a valid user id", "subject", subject)
		return nil
	}

	user := &domain.User{ID: userID}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if su, ok := claims["is_superuser"].(bool); ok {
		user.IsSuperuser = su
	}
	if staff, ok := claims["is_staff"].(bool); ok {
		user.IsStaff = staff
	}
	if subType, ok := claims["subscription_type"].(string); ok {
		user.SubscriptionType = subType
	}
	if rawGroups, ok := claims["groups"].([]any); ok {
		for _, g := range rawGroups {
			if name, ok := g.(string); ok {
				user.Groups = append(user.Groups, name)
			}
		}
	}

	return user
}

// CurrentUser возвращает пользователя запроса или nil для анонима.
func CurrentUser(c *gin.Context) *domain.User {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil
	}
	user, _ := value.(*domain.User)
	return user
}
