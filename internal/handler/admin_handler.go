package handler

import (
	"context"
	"net/http"

	"lexsmart-go/internal/config"
	"lexsmart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// NamespaceDeleter 抽象向量索引的清场操作。
type NamespaceDeleter interface {
	DeleteNamespace(ctx context.Context, name, namespace string) error
}

// AdminHandler 负责处理运维相关的 API 请求。
type AdminHandler struct {
	indexClient NamespaceDeleter
	vectorCfg   config.VectorIndexConfig
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(indexClient NamespaceDeleter, vectorCfg config.VectorIndexConfig) *AdminHandler {
	return &AdminHandler{
		indexClient: indexClient,
		vectorCfg:   vectorCfg,
	}
}

// ResetNamespace 处理清空 namespace 的请求，用于重新入库前的清场。
// namespace 取自路径参数，索引名可通过 index_name 查询参数覆盖。该操作不可逆。
func (h *AdminHandler) ResetNamespace(c *gin.Context) {
	indexName := c.DefaultQuery("index_name", h.vectorCfg.IndexName)
	namespace := c.Param("namespace")
	if namespace == "" {
		namespace = h.vectorCfg.Namespace
	}

	if err := h.indexClient.DeleteNamespace(c.Request.Context(), indexName, namespace); err != nil {
		log.Errorf("ResetNamespace: 清空 namespace 失败, index: %s, namespace: %s, error: %v", indexName, namespace, err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "清空 namespace 失败", "data": nil})
		return
	}

	log.Infof("ResetNamespace: 已清空 namespace, index: %s, namespace: %s", indexName, namespace)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": nil})
}
