package handler

import (
	"github.com/gin-gonic/gin"

	"training-eval/internal/catalog"
	"training-eval/pkg/response"
)

// CatalogHandler 题库 HTTP 处理器
type CatalogHandler struct {
	catalog *catalog.Catalog
}

// NewCatalogHandler 创建 CatalogHandler
func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

// GetCatalog 评估表题库（评分题、开放题、信息来源、总体评价）
// GET /api/v1/catalog
func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	response.OK(c, h.catalog)
}
