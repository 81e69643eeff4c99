package model

// UpsertRecord 是写入向量索引的最小单元：唯一 id、向量与携带原文的元数据。
// 记录在交给索引客户端之前归写入路径独占。
type UpsertRecord struct {
	ID       string                 `json:"id"`
	Vector   []float32              `json:"vector"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Match 是一次 top-k 检索的单条命中结果。
// 只携带元数据（含 text），不回传原始向量值。
type Match struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Text 返回命中结果元数据中的原文分块，缺失时返回空串。
func (m Match) Text() string {
	if t, ok := m.Metadata["text"].(string); ok {
		return t
	}
	return ""
}
