package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lexsmart-go/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeNamespaceDeleter struct {
	name      string
	namespace string
	err       error
}

func (f *fakeNamespaceDeleter) DeleteNamespace(ctx context.Context, name, namespace string) error {
	f.name = name
	f.namespace = namespace
	return f.err
}

func newAdminRouter(deleter *fakeNamespaceDeleter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAdminHandler(deleter, config.VectorIndexConfig{IndexName: "regulations-v1", Namespace: "regulations"})
	r.DELETE("/api/v1/admin/namespaces/:namespace", h.ResetNamespace)
	return r
}

func TestResetNamespaceFromPath(t *testing.T) {
	deleter := &fakeNamespaceDeleter{}
	r := newAdminRouter(deleter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/namespaces/staging", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "regulations-v1", deleter.name)
	assert.Equal(t, "staging", deleter.namespace)
}

func TestResetNamespaceIndexOverride(t *testing.T) {
	deleter := &fakeNamespaceDeleter{}
	r := newAdminRouter(deleter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/namespaces/regulations?index_name=regulations-v2", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "regulations-v2", deleter.name)
	assert.Equal(t, "regulations", deleter.namespace)
}

func TestResetNamespaceFailure(t *testing.T) {
	deleter := &fakeNamespaceDeleter{err: errors.New("delete_by_query failed")}
	r := newAdminRouter(deleter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/namespaces/regulations", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
