package model

import "time"

// RegulationRecord 对应于数据库中的 regulation_records 表。
// 以分区键（体裁编码）+ 排序键（{code}#{theme}#{status}）定位一条法规的元数据，
// Payload 保存元数据与派生 URL 的 JSON 快照。
type RegulationRecord struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PartitionKey string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_partition_sort,priority:1" json:"partitionKey"`
	SortKey      string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_partition_sort,priority:2" json:"sortKey"`
	Payload      string    `gorm:"type:text;not null" json:"payload"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (RegulationRecord) TableName() string {
	return "regulation_records"
}
