package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"a2ui-backend/internal/datasource"
	"a2ui-backend/internal/provider"
	"a2ui-backend/internal/styles"
	"a2ui-backend/internal/tools"
)

// MetaHandler 只读的目录类接口
type MetaHandler struct {
	providers *provider.Registry
	styles    *styles.Registry
	gates     *tools.Gates
	sources   *datasource.Registry
}

func NewMetaHandler(providers *provider.Registry, styleRegistry *styles.Registry, gates *tools.Gates, sources *datasource.Registry) *MetaHandler {
	return &MetaHandler{
		providers: providers,
		styles:    styleRegistry,
		gates:     gates,
		sources:   sources,
	}
}

func (h *MetaHandler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the A2UI Go Backend!"})
}

// Providers 只返回已配置凭据的供应商
func (h *MetaHandler) Providers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.providers.Available()})
}

func (h *MetaHandler) Styles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"styles": h.styles.List()})
}

// Tools 前端据此禁用被环境锁定的开关
func (h *MetaHandler) Tools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": h.gates.States()})
}

func (h *MetaHandler) DataSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.sources.Infos()})
}
