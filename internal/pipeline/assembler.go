package pipeline

import (
	"errors"
	"fmt"

	"lexsmart-go/internal/model"

	"github.com/google/uuid"
)

// ErrArityMismatch 表示分块数与向量数不一致，说明向量化结果不可信，
// 组装必须中止，不允许截断对齐。
var ErrArityMismatch = errors.New("分块与向量数量不一致")

// AssembleRecords 将分块文本与对应向量按位置配对，组装为可写入向量索引的记录。
// 记录 ID 为 {法规编号}-{随机后缀}，同一文档重复入库会产生新的 ID 而非覆盖。
// 每条记录携带完整的文档级元数据，并额外带上自己的分块原文。
func AssembleRecords(chunks []string, vectors [][]float32, meta model.Metadata) ([]model.UpsertRecord, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d 个分块, %d 个向量", ErrArityMismatch, len(chunks), len(vectors))
	}

	records := make([]model.UpsertRecord, 0, len(chunks))
	for i, chunk := range chunks {
		metadata := meta.ToMap()
		metadata["text"] = chunk
		records = append(records, model.UpsertRecord{
			ID:       fmt.Sprintf("%s-%s", meta.Code, uuid.NewString()),
			Vector:   vectors[i],
			Metadata: metadata,
		})
	}
	return records, nil
}
