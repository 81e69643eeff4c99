// Package vectorindex 提供了向量索引客户端，后端为 Elasticsearch。
// 对外暴露 ensure/upsert/query/delete 四个操作，索引以名字定位，
// 内部再按 namespace 字段做逻辑分区。
package vectorindex

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lexsmart-go/internal/config"
	"lexsmart-go/internal/model"
	"lexsmart-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	// ErrIndexNotReady 表示索引在限定的轮询次数内始终未达到就绪状态。
	ErrIndexNotReady = errors.New("向量索引未就绪")
	// ErrUpsert 表示提供方拒绝了写入，例如向量维度与索引不匹配。
	ErrUpsert = errors.New("向量写入失败")
)

// Client 是向量索引的客户端。
type Client struct {
	es *elasticsearch.Client
	// PollInterval 是就绪与对账轮询的间隔，默认 1 秒。
	PollInterval      time.Duration
	readyMaxAttempts  int
	settleMaxAttempts int
}

// NewClient 创建一个新的向量索引客户端。
func NewClient(cfg config.VectorIndexConfig) (*Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.Addresses},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("创建 Elasticsearch 客户端失败: %w", err)
	}
	return &Client{
		es:                client,
		PollInterval:      time.Second,
		readyMaxAttempts:  cfg.ReadyMaxAttempts,
		settleMaxAttempts: cfg.SettleMaxAttempts,
	}, nil
}

// metricSimilarity 把配置的度量名映射到 Elasticsearch 的 similarity 取值。
func metricSimilarity(metric string) string {
	switch metric {
	case "dot_product":
		return "dot_product"
	case "l2_norm":
		return "l2_norm"
	default:
		return "cosine"
	}
}

// EnsureIndex 确保指定名字的索引存在且就绪。
// 索引已存在时为幂等 no-op，不会复核已有索引的维度；
// 维度不匹配属于调用方错误，会在后续写入时由提供方拒绝。
func (c *Client) EnsureIndex(ctx context.Context, name string, dimension int, metric string) error {
	res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("[VectorIndex] 检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()

	// 200 说明索引已存在，直接走就绪检查
	if res.StatusCode == http.StatusOK {
		log.Infof("[VectorIndex] 索引 '%s' 已存在", name)
		return c.waitReady(ctx, name)
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("[VectorIndex] 检查索引 '%s' 是否存在时收到意外的状态码: %d", name, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	log.Infof("[VectorIndex] 索引 '%s' 不存在, 正在创建, 维度: %d, 度量: %s", name, dimension, metric)
	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"record_id": { "type": "keyword" },
				"namespace": { "type": "keyword" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "%s"
				},
				"metadata": { "type": "object", "enabled": true }
			}
		}
	}`, dimension, metricSimilarity(metric))

	createRes, err := c.es.Indices.Create(
		name,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("[VectorIndex] 创建索引 '%s' 失败: %v", name, err)
		return err
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		log.Errorf("[VectorIndex] 创建索引 '%s' 时提供方返回错误: %s", name, createRes.String())
		return fmt.Errorf("创建索引 '%s' 时提供方返回错误: %s", name, createRes.Status())
	}
	log.Infof("[VectorIndex] 索引 '%s' 创建成功, 等待就绪", name)

	return c.waitReady(ctx, name)
}

// waitReady 以固定间隔轮询索引健康状态，直到就绪或超出次数上限。
func (c *Client) waitReady(ctx context.Context, name string) error {
	for attempt := 1; attempt <= c.readyMaxAttempts; attempt++ {
		ready, err := c.isReady(ctx, name)
		if err != nil {
			log.Warnf("[VectorIndex] 第 %d 次就绪检查失败: %v", attempt, err)
		} else if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.PollInterval):
		}
	}
	log.Errorf("[VectorIndex] 索引 '%s' 在 %d 次轮询后仍未就绪", name, c.readyMaxAttempts)
	return fmt.Errorf("%w: 索引 '%s' 在 %d 次轮询后仍未就绪", ErrIndexNotReady, name, c.readyMaxAttempts)
}

// isReady 检查索引健康状态，yellow/green 视为就绪。
func (c *Client) isReady(ctx context.Context, name string) (bool, error) {
	res, err := c.es.Cluster.Health(
		c.es.Cluster.Health.WithContext(ctx),
		c.es.Cluster.Health.WithIndex(name),
	)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return false, fmt.Errorf("健康检查返回错误: %s", res.Status())
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		return false, fmt.Errorf("解析健康检查响应失败: %w", err)
	}
	return health.Status == "green" || health.Status == "yellow", nil
}

// Upsert 将一批记录写入指定索引的 namespace 分区。
// 写入后不使用固定的等待时延，而是轮询统计计数直到写入量被反映出来；
// 轮询耗尽只记录告警，不算失败。
func (c *Client) Upsert(ctx context.Context, name, namespace string, records []model.UpsertRecord) error {
	if len(records) == 0 {
		return nil
	}

	before, err := c.countNamespace(ctx, name, namespace)
	if err != nil {
		log.Warnf("[VectorIndex] 写入前统计 namespace '%s' 失败: %v", namespace, err)
		before = -1
	}

	var buf bytes.Buffer
	for _, record := range records {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": name,
				"_id":    record.ID,
			},
		}
		actionBytes, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("序列化 bulk action 失败: %w", err)
		}
		doc := map[string]interface{}{
			"record_id": record.ID,
			"namespace": namespace,
			"vector":    record.Vector,
			"metadata":  record.Metadata,
		}
		docBytes, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("序列化 bulk 文档失败: %w", err)
		}
		buf.Write(actionBytes)
		buf.WriteByte('\n')
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}

	res, err := c.es.Bulk(bytes.NewReader(buf.Bytes()), c.es.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpsert, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("[VectorIndex] bulk 写入返回错误: %s", res.String())
		return fmt.Errorf("%w: 提供方返回 %s", ErrUpsert, res.Status())
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("%w: 解析 bulk 响应失败: %v", ErrUpsert, err)
	}
	if bulkResp.Errors {
		for _, item := range bulkResp.Items {
			for _, r := range item {
				if r.Error != nil {
					return fmt.Errorf("%w: %s: %s", ErrUpsert, r.Error.Type, r.Error.Reason)
				}
			}
		}
		return fmt.Errorf("%w: bulk 响应包含未知错误", ErrUpsert)
	}

	log.Infof("[VectorIndex] 成功写入 %d 条记录, index: %s, namespace: %s", len(records), name, namespace)

	// 读写最终一致：写入量未被统计反映之前，读取可能看不到新数据
	if before >= 0 {
		c.waitSettled(ctx, name, namespace, before+int64(len(records)))
	}
	return nil
}

// waitSettled 轮询 namespace 的文档计数，直到达到期望值或超出次数上限。
func (c *Client) waitSettled(ctx context.Context, name, namespace string, expected int64) {
	for attempt := 1; attempt <= c.settleMaxAttempts; attempt++ {
		count, err := c.countNamespace(ctx, name, namespace)
		if err == nil && count >= expected {
			log.Infof("[VectorIndex] 写入已对账, namespace: %s, count: %d", namespace, count)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.PollInterval):
		}
	}
	log.Warnf("[VectorIndex] namespace '%s' 在 %d 次轮询后计数仍未达到 %d", namespace, c.settleMaxAttempts, expected)
}

// countNamespace 统计 namespace 分区内的文档数量。
func (c *Client) countNamespace(ctx context.Context, name, namespace string) (int64, error) {
	query := fmt.Sprintf(`{"query":{"term":{"namespace":%q}}}`, namespace)
	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(name),
		c.es.Count.WithBody(strings.NewReader(query)),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("统计请求返回错误: %s", res.Status())
	}
	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return 0, err
	}
	return countResp.Count, nil
}

// Query 在指定索引的 namespace 分区内检索与向量最近的 topK 条记录。
// 索引未就绪时返回 nil 并记录日志，调用方应视为"稍后重试"，
// 而不是"没有命中"；没有命中时返回空的非 nil 切片。
func (c *Client) Query(ctx context.Context, name, namespace string, vector []float32, topK int) ([]model.Match, error) {
	if topK <= 0 {
		topK = 10
	}

	ready, err := c.isReady(ctx, name)
	if err != nil || !ready {
		log.Warnf("[VectorIndex] 索引 '%s' 未就绪, 跳过本次检索, err: %v", name, err)
		return nil, nil
	}

	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              topK,
			"num_candidates": topK * 10,
			"filter": map[string]interface{}{
				"term": map[string]interface{}{"namespace": namespace},
			},
		},
		"size": topK,
		"_source": map[string]interface{}{
			"excludes": []string{"vector"},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("序列化检索请求失败: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(name),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("检索请求失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("检索返回错误: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					Metadata map[string]interface{} `json:"metadata"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("解析检索响应失败: %w", err)
	}

	matches := make([]model.Match, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		matches = append(matches, model.Match{
			ID:       hit.ID,
			Score:    hit.Score,
			Metadata: hit.Source.Metadata,
		})
	}
	log.Infof("[VectorIndex] 检索完成, index: %s, namespace: %s, 命中 %d 条", name, namespace, len(matches))
	return matches, nil
}

// DeleteNamespace 不可逆地删除 namespace 分区内的全部向量，用于重新入库前的清场。
func (c *Client) DeleteNamespace(ctx context.Context, name, namespace string) error {
	query := fmt.Sprintf(`{"query":{"term":{"namespace":%q}}}`, namespace)
	req := esapi.DeleteByQueryRequest{
		Index:   []string{name},
		Body:    strings.NewReader(query),
		Refresh: boolPtr(true),
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("删除 namespace 失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("删除 namespace 时提供方返回错误: %s", res.String())
	}
	log.Infof("[VectorIndex] 已清空 namespace, index: %s, namespace: %s", name, namespace)
	return nil
}

func boolPtr(b bool) *bool { return &b }
