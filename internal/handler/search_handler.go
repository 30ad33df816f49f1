package handler

import (
	"aegis-rag-go/internal/service"
	"aegis-rag-go/pkg/log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了检索相关的处理器。
type SearchHandler struct {
	searchService service.SearchService
	defaultTopK   int
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService, defaultTopK int) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		defaultTopK:   defaultTopK,
	}
}

// Search 处理全文检索请求。
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		log.Warnf("[SearchHandler] 搜索请求失败: query 参数为空")
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的查询参数"})
		return
	}
	topK := positiveQueryInt(c, "topK", h.defaultTopK)

	results, err := h.searchService.Search(c.Request.Context(), query, topK)
	if err != nil {
		log.Errorf("[SearchHandler] 检索服务返回错误, error: %v", err)
		c.JSON(statusFor(err), gin.H{"error": "搜索失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": results, "message": "success"})
}

// ListChunks 浏览索引中的分块，用于排查切块效果。
func (h *SearchHandler) ListChunks(c *gin.Context) {
	limit := positiveQueryInt(c, "limit", 5)
	results, err := h.searchService.ListChunks(c.Request.Context(), limit)
	if err != nil {
		log.Errorf("[SearchHandler] 浏览分块失败, error: %v", err)
		c.JSON(statusFor(err), gin.H{"error": "获取分块失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": results, "message": "success"})
}

// positiveQueryInt 读取正整数查询参数，缺失或非法时返回默认值。
func positiveQueryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
