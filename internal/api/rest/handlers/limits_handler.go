package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Avdeenko/Classifieds-backend/internal/api/rest/middleware"
	"github.com/Avdeenko/Classifieds-backend/internal/limits"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

// LimitsHandler обработчик лимитов контента
type LimitsHandler struct {
	limitsSvc *limits.Service
	log       *logger.Logger
}

// NewLimitsHandler создает новый обработчик лимитов
func NewLimitsHandler(limitsSvc *limits.Service, log *logger.Logger) *LimitsHandler {
	return &LimitsHandler{limitsSvc: limitsSvc, log: log}
}

// GetEffectiveLimits возвращает эффективные лимиты для вызывающего.
// Endpoint публичный: аноним получает лимиты по умолчанию.
func (h *LimitsHandler) GetEffectiveLimits(c *gin.Context) {
	user := middleware.CurrentUser(c)
	result := h.limitsSvc.EffectiveLimits(c.Request.Context(), user)
	c.JSON(http.StatusOK, result)
}
