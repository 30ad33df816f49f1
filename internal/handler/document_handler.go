// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"aegis-rag-go/internal/service"
	"aegis-rag-go/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 负责处理所有与文档入库相关的 API 请求。
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// IngestTextRequest 定义了文本入库 API 的请求体结构。
type IngestTextRequest struct {
	DocID     string `json:"docId" binding:"required"`
	Source    string `json:"source"`
	Text      string `json:"text"`
	ChunkSize int    `json:"chunkSize"`
	Overlap   int    `json:"overlap"`
}

// IngestText 同步切块并索引请求体中的文本。
func (h *DocumentHandler) IngestText(c *gin.Context) {
	var req IngestTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	n, err := h.docService.IngestText(c.Request.Context(), req.DocID, req.Source, req.Text, req.ChunkSize, req.Overlap)
	if err != nil {
		log.Errorf("[DocumentHandler] 文本入库失败, DocID: %s, 已写入 %d 个分块, error: %v", req.DocID, n, err)
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "data": gin.H{"docId": req.DocID, "chunks": n}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "文档入库成功",
		"data":    gin.H{"docId": req.DocID, "chunks": n},
	})
}

// Upload 接收上传文件，写入暂存区并投递异步入库任务。
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取上传文件"})
		return
	}
	defer file.Close()

	task, err := h.docService.StageUpload(c.Request.Context(), c.PostForm("docId"), fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		log.Errorf("[DocumentHandler] 暂存上传文件失败, FileName: %s, error: %v", fileHeader.Filename, err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"code":    http.StatusAccepted,
		"message": "文件已接收，正在后台入库",
		"data":    gin.H{"docId": task.DocID, "fileName": task.FileName},
	})
}

// GetStatus 返回文档最近一次入库的台账记录。
func (h *DocumentHandler) GetStatus(c *gin.Context) {
	docID := c.Param("docId")
	job, err := h.docService.GetIngestStatus(docID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": job})
}
