package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Avdeenko/Classifieds-backend/internal/siteconfig"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

// ConfigHandler обработчик конфигурации сайта
type ConfigHandler struct {
	siteConfig *siteconfig.Service
	log        *logger.Logger
}

// NewConfigHandler создает новый обработчик конфигурации сайта
func NewConfigHandler(siteConfig *siteconfig.Service, log *logger.Logger) *ConfigHandler {
	return &ConfigHandler{siteConfig: siteConfig, log: log}
}

// GetSiteConfig возвращает конфигурацию сайта. Пока конфигурация не
// создана, клиент получает пустой объект и 404 - фронтенд различает
// "нет настроек" и "ошибка".
func (h *ConfigHandler) GetSiteConfig(c *gin.Context) {
	cfg := h.siteConfig.Get(c.Request.Context())
	if cfg == nil {
		c.JSON(http.StatusNotFound, gin.H{})
		return
	}
	c.JSON(http.StatusOK, cfg)
}
