// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"lexsmart-go/internal/model"
	"lexsmart-go/internal/service"
	"lexsmart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UploadHandler 负责处理法规文档上传相关的 API 请求。
type UploadHandler struct {
	ingestService service.IngestService
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(ingestService service.IngestService) *UploadHandler {
	return &UploadHandler{ingestService: ingestService}
}

// UploadRegulation 处理法规文档的上传请求。
// 请求为 multipart 表单：元数据字段 + 名为 file 的 PDF 文件。
func (h *UploadHandler) UploadRegulation(c *gin.Context) {
	var meta model.Metadata
	if err := c.ShouldBind(&meta); err != nil {
		log.Warnf("UploadRegulation: 无效的元数据表单, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的元数据表单", "data": nil})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Warnf("UploadRegulation: 缺少 PDF 文件, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "缺少 PDF 文件", "data": nil})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("UploadRegulation: 打开上传文件失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "读取上传文件失败", "data": nil})
		return
	}
	defer file.Close()

	fileName, err := h.ingestService.Ingest(c.Request.Context(), meta, file, fileHeader.Size)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransition) {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": err.Error(), "data": nil})
			return
		}
		log.Errorf("UploadRegulation: 上传流程失败, Code: %s, error: %v", meta.Code, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": err.Error(), "data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"fileName": fileName},
	})
}
