package model

// RegulationChunk 对应于数据库中的 regulation_chunks 表。
// 向量化之前，分块原文先落库一份，便于排查与重建索引。
type RegulationChunk struct {
	ID           uint   `gorm:"primaryKey;autoIncrement;column:id"`
	Code         string `gorm:"type:varchar(64);not null;index;column:code"`
	ChunkIndex   int    `gorm:"not null;column:chunk_index"`
	TextContent  string `gorm:"type:text;column:text_content"`
	ModelVersion string `gorm:"type:varchar(50);column:model_version"`
}

func (RegulationChunk) TableName() string {
	return "regulation_chunks"
}
