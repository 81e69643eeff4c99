// Package repository 提供了数据访问层的实现。
package repository

import (
	"net/http"

	"lexsmart-go/internal/model"
	"lexsmart-go/pkg/log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegulationRepository 定义了对 regulation_records 表的数据操作接口。
type RegulationRepository interface {
	// PutItem 以分区键+排序键写入一条法规元数据，同键覆盖。
	// 返回 HTTP 风格的状态码，200 表示成功。
	PutItem(record *model.RegulationRecord) int
	// FindByKeys 按分区键+排序键精确查找，未命中返回 (nil, nil)。
	FindByKeys(partitionKey, sortKey string) (*model.RegulationRecord, error)
}

type regulationRepository struct {
	db *gorm.DB
}

// NewRegulationRepository 创建一个新的 RegulationRepository 实例。
func NewRegulationRepository(db *gorm.DB) RegulationRepository {
	return &regulationRepository{db: db}
}

// PutItem 写入或覆盖一条法规元数据记录。
func (r *regulationRepository) PutItem(record *model.RegulationRecord) int {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "partition_key"}, {Name: "sort_key"}},
		UpdateAll: true,
	}).Create(record).Error
	if err != nil {
		log.Errorf("写入法规元数据失败, partition: %s, sort: %s, error: %v", record.PartitionKey, record.SortKey, err)
		return http.StatusInternalServerError
	}
	log.Infof("法规元数据写入成功, partition: %s, sort: %s", record.PartitionKey, record.SortKey)
	return http.StatusOK
}

// FindByKeys 根据分区键和排序键查找一条法规元数据。
func (r *regulationRepository) FindByKeys(partitionKey, sortKey string) (*model.RegulationRecord, error) {
	var record model.RegulationRecord
	err := r.db.Where("partition_key = ? AND sort_key = ?", partitionKey, sortKey).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
