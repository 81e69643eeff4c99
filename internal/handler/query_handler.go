package handler

import (
	"net/http"

	"lexsmart-go/internal/config"
	"lexsmart-go/internal/service"
	"lexsmart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// QueryHandler 负责处理检索增强问答的 API 请求。
type QueryHandler struct {
	queryService service.QueryService
	vectorCfg    config.VectorIndexConfig
}

// NewQueryHandler 创建一个新的 QueryHandler 实例。
func NewQueryHandler(queryService service.QueryService, vectorCfg config.VectorIndexConfig) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
		vectorCfg:    vectorCfg,
	}
}

// QueryRequest 定义了问答 API 的请求体结构。
// 索引名与 namespace 缺省时取配置值。
type QueryRequest struct {
	Query     string `json:"query" binding:"required"`
	IndexName string `json:"index_name"`
	Namespace string `json:"namespace"`
}

// Answer 处理一次检索增强问答请求。
func (h *QueryHandler) Answer(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Answer: 无效的请求负载, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载", "data": nil})
		return
	}

	indexName := req.IndexName
	if indexName == "" {
		indexName = h.vectorCfg.IndexName
	}
	namespace := req.Namespace
	if namespace == "" {
		namespace = h.vectorCfg.Namespace
	}

	answer, err := h.queryService.Answer(c.Request.Context(), req.Query, indexName, namespace)
	if err != nil {
		log.Errorf("Answer: 问答流程失败, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "问答服务暂时不可用", "data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"answer": answer},
	})
}
