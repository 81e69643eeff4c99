package repository

import (
	"gorm.io/gorm"
	"lexsmart-go/internal/model"
)

// ChunkRepository 定义了对 regulation_chunks 表的数据操作接口。
type ChunkRepository interface {
	BatchCreate(chunks []*model.RegulationChunk) error
	FindByCode(code string) ([]*model.RegulationChunk, error)
	DeleteByCode(code string) error
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建一个新的 ChunkRepository 实例。
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// BatchCreate 批量创建分块记录。
func (r *chunkRepository) BatchCreate(chunks []*model.RegulationChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.CreateInBatches(chunks, 100).Error // 每100条记录一批
}

// FindByCode 根据法规编号查找所有相关的分块记录。
func (r *chunkRepository) FindByCode(code string) ([]*model.RegulationChunk, error) {
	var chunks []*model.RegulationChunk
	err := r.db.Where("code = ?", code).Order("chunk_index ASC").Find(&chunks).Error
	return chunks, err
}

// DeleteByCode 根据法规编号删除所有相关的分块记录，重复入库前先清场。
func (r *chunkRepository) DeleteByCode(code string) error {
	return r.db.Where("code = ?", code).Delete(&model.RegulationChunk{}).Error
}
