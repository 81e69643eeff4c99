package service

import (
	"encoding/json"
	"net/http"
	"testing"

	"lexsmart-go/internal/config"
	"lexsmart-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegulationRepo struct {
	putRecords []*model.RegulationRecord
	putStatus  int
}

func (f *fakeRegulationRepo) PutItem(record *model.RegulationRecord) int {
	f.putRecords = append(f.putRecords, record)
	if f.putStatus != 0 {
		return f.putStatus
	}
	return http.StatusOK
}

func (f *fakeRegulationRepo) FindByKeys(partitionKey, sortKey string) (*model.RegulationRecord, error) {
	return nil, nil
}

func testDictionary() config.DictionaryConfig {
	return config.DictionaryConfig{
		Genres:   map[string]string{"Ley": "LEY", "Decreto": "DEC"},
		Themes:   map[string]string{"Ambiental": "AMB", "Fiscal": "FIS"},
		Statuses: map[string]string{"Vigente": "VIG", "Derogada": "DER"},
	}
}

func newTestIngestService(repo *fakeRegulationRepo) IngestService {
	return NewIngestService(
		repo,
		config.StorageConfig{BucketName: "env-regulations", Region: "us-east-2"},
		config.VectorIndexConfig{IndexName: "regulations-v1", Namespace: "regulations"},
		testDictionary(),
	)
}

func TestBuildFileName(t *testing.T) {
	svc := newTestIngestService(&fakeRegulationRepo{})

	fileName, err := svc.BuildFileName(completeMetadata())
	require.NoError(t, err)
	assert.Equal(t, "LEY#2023#LGA-2023#AMB#VIG.pdf", fileName)
}

func TestBuildFileNameUnknownGenre(t *testing.T) {
	svc := newTestIngestService(&fakeRegulationRepo{})

	meta := completeMetadata()
	meta.Genre = "Resolución"
	_, err := svc.BuildFileName(meta)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Resolución")
}

func TestStoreMetadata(t *testing.T) {
	repo := &fakeRegulationRepo{}
	svc := newTestIngestService(repo)

	meta := completeMetadata()
	meta.URL = "https://env-regulations.s3.us-east-2.amazonaws.com/LEY%232023%23LGA-2023%23AMB%23VIG.pdf"
	status := svc.StoreMetadata(meta)
	assert.Equal(t, http.StatusOK, status)

	require.Len(t, repo.putRecords, 1)
	record := repo.putRecords[0]
	assert.Equal(t, "LEY", record.PartitionKey, "分区键是体裁编码")
	assert.Equal(t, "LGA-2023#Ambiental#Vigente", record.SortKey)

	var payload model.Metadata
	require.NoError(t, json.Unmarshal([]byte(record.Payload), &payload))
	assert.Equal(t, meta.Title, payload.Title)
	assert.Equal(t, meta.URL, payload.URL)
}

func TestStoreMetadataUnknownGenre(t *testing.T) {
	repo := &fakeRegulationRepo{}
	svc := newTestIngestService(repo)

	meta := completeMetadata()
	meta.Genre = "Circular"
	status := svc.StoreMetadata(meta)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Empty(t, repo.putRecords)
}

func TestStoreMetadataRepositoryFailure(t *testing.T) {
	repo := &fakeRegulationRepo{putStatus: http.StatusInternalServerError}
	svc := newTestIngestService(repo)

	status := svc.StoreMetadata(completeMetadata())
	assert.Equal(t, http.StatusInternalServerError, status)
}
