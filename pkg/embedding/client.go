// Package embedding provides a client for interacting with embedding models.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"lexsmart-go/internal/config"
	"lexsmart-go/pkg/log"
)

// ErrEmbedding 表示向量化调用在提供方或网络层面失败。
// 调用方不得用零向量顶替，必须中止本次流程。
var ErrEmbedding = errors.New("embedding 调用失败")

// Client defines the interface for an embedding client.
// 批量接口保证输出向量与输入文本一一对应且顺序一致；
// 单条接口供查询路径使用，与文档向量共享同一模型与维度。
type Client interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type openAICompatibleClient struct {
	cfg    config.EmbeddingConfig
	client *http.Client
}

// NewClient creates a new embedding client based on the provider in the config.
func NewClient(cfg config.EmbeddingConfig) Client {
	return &openAICompatibleClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// CreateEmbeddings 批量调用 OpenAI 兼容接口，为每条文本生成一个向量。
func (c *openAICompatibleClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	log.Infof("[EmbeddingClient] 开始调用 Embedding API, model: %s, 输入条数: %d", c.cfg.Model, len(texts))
	reqBody := embeddingRequest{
		Model:      c.cfg.Model,
		Input:      texts,
		Dimensions: c.cfg.Dimensions,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/embeddings", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("[EmbeddingClient] 调用 Embedding API 失败, error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Errorf("[EmbeddingClient] Embedding API 返回非 200 状态码: %s", resp.Status)
		return nil, fmt.Errorf("%w: api returned status %s", ErrEmbedding, resp.Status)
	}

	var embeddingResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		log.Errorf("[EmbeddingClient] 解析 Embedding API 响应失败, error: %v", err)
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrEmbedding, err)
	}

	if len(embeddingResp.Data) != len(texts) {
		log.Errorf("[EmbeddingClient] Embedding API 返回向量条数与输入不一致: %d != %d", len(embeddingResp.Data), len(texts))
		return nil, fmt.Errorf("%w: 返回向量条数 %d 与输入 %d 不一致", ErrEmbedding, len(embeddingResp.Data), len(texts))
	}

	// 按 index 归位，保证输出顺序与输入顺序一致
	vectors := make([][]float32, len(texts))
	for _, d := range embeddingResp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("%w: 返回了越界的 index %d", ErrEmbedding, d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: 第 %d 条返回了空向量", ErrEmbedding, d.Index)
		}
		if c.cfg.Dimensions > 0 && len(d.Embedding) != c.cfg.Dimensions {
			return nil, fmt.Errorf("%w: 第 %d 条向量维度 %d 与配置 %d 不一致", ErrEmbedding, d.Index, len(d.Embedding), c.cfg.Dimensions)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: 第 %d 条输入没有对应向量", ErrEmbedding, i)
		}
	}

	log.Infof("[EmbeddingClient] 成功获取 %d 条向量, 维度: %d", len(vectors), len(vectors[0]))
	return vectors, nil
}

// CreateEmbedding 对单条文本向量化，查询路径与文档路径走同一个接口，
// 保证查询向量与文档向量落在同一向量空间。
func (c *openAICompatibleClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: 单条输入返回了 %d 条向量", ErrEmbedding, len(vectors))
	}
	return vectors[0], nil
}
