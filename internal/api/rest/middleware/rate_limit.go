package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Avdeenko/Classifieds-backend/internal/cache"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

const rateLimitWindow = time.Minute

// RateLimit ограничивает частоту запросов на вызывающего в минутном
// окне. Аутентифицированные считаются по ID пользователя, анонимы по
// IP. Ошибка кэша пропускает запрос: недоступный Redis не должен
// ронять публичный endpoint.
func RateLimit(c cache.Cache, log *logger.Logger, authLimit, anonLimit int) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := CurrentUser(ctx)

		var key string
		limit := anonLimit
		if user != nil {
			key = fmt.Sprintf("throttle:%s:user:%s", ctx.FullPath(), user.ID)
			limit = authLimit
		} else {
			key = fmt.Sprintf("throttle:%s:ip:%s", ctx.FullPath(), ctx.ClientIP())
		}

		count, err := c.Incr(ctx.Request.Context(), key, rateLimitWindow)
		if err != nil {
			log.Warnw("Rate limit counter unavailable, allowing request", "error", err, "key", key)
			ctx.Next()
			return
		}

		if count > int64(limit) {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Request was throttled",
			})
			return
		}

		ctx.Next()
	}
}
