package main

import (
	"errors"
	"testing"

	"lexsmart-go/internal/config"
	"lexsmart-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegulationRepo struct {
	record       *model.RegulationRecord
	findErr      error
	partitionKey string
	sortKey      string
}

func (f *fakeRegulationRepo) PutItem(record *model.RegulationRecord) int {
	return 200
}

func (f *fakeRegulationRepo) FindByKeys(partitionKey, sortKey string) (*model.RegulationRecord, error) {
	f.partitionKey = partitionKey
	f.sortKey = sortKey
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.record, nil
}

func seedDictionary() config.DictionaryConfig {
	return config.DictionaryConfig{
		Genres:   map[string]string{"Ley": "LEY", "Reglamento": "REG"},
		Themes:   map[string]string{"Ambiental": "AMB", "Agua": "AGU"},
		Statuses: map[string]string{"Vigente": "VIG", "Abrogada": "ABR"},
	}
}

func TestParseSeedFileName(t *testing.T) {
	meta, err := parseSeedFileName("LEY#2023#LGA-2023#AMB#VIG.pdf", seedDictionary())
	require.NoError(t, err)
	assert.Equal(t, "Ley", meta.Genre)
	assert.Equal(t, "Ambiental", meta.Theme)
	assert.Equal(t, "Vigente", meta.Status)
	assert.Equal(t, "LGA-2023", meta.Code)
	assert.Equal(t, 2023, meta.Year)
	assert.Equal(t, "LGA-2023#Ambiental#Vigente", meta.SortKey())
}

func TestParseSeedFileNameRejectsMalformed(t *testing.T) {
	cases := []string{
		"LEY#2023#LGA-2023#AMB.pdf",      // 少一段
		"LEY#year#LGA-2023#AMB#VIG.pdf",  // 年份非法
		"XXX#2023#LGA-2023#AMB#VIG.pdf",  // 未知体裁编码
		"LEY#2023#LGA-2023#XXX#VIG.pdf",  // 未知主题编码
		"LEY#2023#LGA-2023#AMB#XXX.pdf",  // 未知状态编码
	}
	for _, name := range cases {
		_, err := parseSeedFileName(name, seedDictionary())
		assert.Error(t, err, name)
	}
}

func TestSeedAlreadyImported(t *testing.T) {
	// 同键记录已存在时跳过导入
	repo := &fakeRegulationRepo{record: &model.RegulationRecord{PartitionKey: "LEY", SortKey: "LGA-2023#Ambiental#Vigente"}}
	assert.True(t, seedAlreadyImported(repo, "LEY", "LGA-2023#Ambiental#Vigente"))
	assert.Equal(t, "LEY", repo.partitionKey)
	assert.Equal(t, "LGA-2023#Ambiental#Vigente", repo.sortKey)
}

func TestSeedAlreadyImportedNotFound(t *testing.T) {
	repo := &fakeRegulationRepo{}
	assert.False(t, seedAlreadyImported(repo, "LEY", "LGA-2023#Ambiental#Vigente"))
}

func TestSeedAlreadyImportedQueryError(t *testing.T) {
	// 查询失败按未导入处理，由落库侧同键覆盖兜底
	repo := &fakeRegulationRepo{findErr: errors.New("connection refused")}
	assert.False(t, seedAlreadyImported(repo, "LEY", "LGA-2023#Ambiental#Vigente"))
}
