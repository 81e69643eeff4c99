// Package tika 提供了一个与 Apache Tika 服务器交互的文本提取客户端。
package tika

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"lexsmart-go/internal/config"
)

// ErrExtraction 表示 PDF 流不可解析或提取中途失败。
// 提取是整体失败策略：任何一处失败都会中止整个文档的提取。
var ErrExtraction = errors.New("文本提取失败")

// Client 是 Tika 服务器的客户端。
type Client struct {
	serverURL string
	client    *http.Client
}

// NewClient 创建一个新的 Tika 客户端实例。
func NewClient(cfg config.TikaConfig) *Client {
	return &Client{
		serverURL: cfg.ServerURL,
		client:    http.DefaultClient,
	}
}

// ExtractText 将一个 PDF 字节流交给 Tika 提取为纯文本。
// 输出为按页序拼接的全文，不做任何分块或空白清理。
func (c *Client) ExtractText(fileReader io.Reader, fileName string) (string, error) {
	contentType := detectMimeType(fileName)

	req, err := http.NewRequest("PUT", c.serverURL+"/tika", fileReader)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: 调用 Tika 失败: %v", ErrExtraction, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: Tika 返回错误 [%d]: %s", ErrExtraction, resp.StatusCode, string(body))
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return "", fmt.Errorf("%w: 读取 Tika 响应失败: %v", ErrExtraction, err)
	}

	return buf.String(), nil
}

// detectMimeType 根据文件扩展名判断 Content-Type
func detectMimeType(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "application/octet-stream"
	}
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}
