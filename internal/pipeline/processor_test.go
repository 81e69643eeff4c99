package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"lexsmart-go/internal/config"
	"lexsmart-go/internal/model"
	"lexsmart-go/pkg/tasks"
	"lexsmart-go/pkg/tika"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText(r io.Reader, fileName string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeEmbedder struct {
	dims  int
	err   error
	texts []string
}

func (f *fakeEmbedder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.texts = texts
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, f.dims)
		vectors[i][0] = float32(i)
	}
	return vectors, nil
}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type fakeIndex struct {
	ensured   []string
	upserted  []model.UpsertRecord
	namespace string
	upsertErr error
}

func (f *fakeIndex) EnsureIndex(ctx context.Context, name string, dimension int, metric string) error {
	f.ensured = append(f.ensured, name)
	return nil
}

func (f *fakeIndex) Upsert(ctx context.Context, name, namespace string, records []model.UpsertRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if len(f.ensured) == 0 {
		return errors.New("upsert before ensure")
	}
	f.namespace = namespace
	f.upserted = append(f.upserted, records...)
	return nil
}

type fakeChunkRepo struct {
	deleted   []string
	stored    []*model.RegulationChunk
	findCalls int
	findErr   error
}

func (f *fakeChunkRepo) BatchCreate(chunks []*model.RegulationChunk) error {
	f.stored = append(f.stored, chunks...)
	return nil
}

func (f *fakeChunkRepo) FindByCode(code string) ([]*model.RegulationChunk, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.stored, nil
}

func (f *fakeChunkRepo) DeleteByCode(code string) error {
	f.deleted = append(f.deleted, code)
	f.stored = nil
	return nil
}

func downloadFake(content string) DownloadFunc {
	return func(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte(content))), nil
	}
}

func newTestProcessor(download DownloadFunc, extractor TextExtractor, embedder *fakeEmbedder, index *fakeIndex, repo *fakeChunkRepo) *Processor {
	return NewProcessor(
		download,
		extractor,
		embedder,
		index,
		repo,
		config.StorageConfig{BucketName: "env-regulations"},
		config.EmbeddingConfig{Model: "text-embedding-3-small", Dimensions: 4},
		config.VectorIndexConfig{Metric: "cosine"},
		config.ChunkingConfig{MaxSize: 1000, Overlap: 100},
	)
}

func testTask() tasks.IngestTask {
	return tasks.IngestTask{
		Code:       "LGA-2023",
		ObjectName: "LEY#2023#LGA-2023#AMB#VIG.pdf",
		FileName:   "LEY#2023#LGA-2023#AMB#VIG.pdf",
		IndexName:  "regulations-v1",
		Namespace:  "regulations",
		Metadata:   model.Metadata{Code: "LGA-2023", Genre: "Ley", Theme: "Ambiental", Status: "Vigente", Title: "t", Year: 2023, Month: "06", Day: 1, Dependency: "d"},
	}
}

func TestProcessorProcess(t *testing.T) {
	extractor := &fakeExtractor{text: strings.Repeat("a", 2500)}
	embedder := &fakeEmbedder{dims: 4}
	index := &fakeIndex{}
	repo := &fakeChunkRepo{}
	p := newTestProcessor(downloadFake("%PDF-1.7"), extractor, embedder, index, repo)

	err := p.Process(context.Background(), testTask())
	require.NoError(t, err)

	// 分块先落库再向量化，数量一致
	assert.Equal(t, []string{"LGA-2023"}, repo.deleted)
	require.Len(t, repo.stored, 3)
	assert.Equal(t, 0, repo.stored[0].ChunkIndex)
	assert.Equal(t, "text-embedding-3-small", repo.stored[0].ModelVersion)

	// 向量化的输入取自按 chunk_index 顺序读回的落库分块
	assert.Equal(t, 1, repo.findCalls)
	require.Len(t, embedder.texts, 3)
	for i, chunk := range repo.stored {
		assert.Equal(t, chunk.TextContent, embedder.texts[i])
	}

	// ensure 先于 upsert，记录数等于分块数
	assert.Equal(t, []string{"regulations-v1"}, index.ensured)
	assert.Len(t, index.upserted, 3)
	assert.Equal(t, "regulations", index.namespace)
	for _, record := range index.upserted {
		assert.True(t, strings.HasPrefix(record.ID, "LGA-2023-"))
		assert.Len(t, record.Vector, 4)
		assert.NotEmpty(t, record.Metadata["text"])
	}
}

func TestProcessorEmptyFile(t *testing.T) {
	index := &fakeIndex{}
	p := newTestProcessor(downloadFake(""), &fakeExtractor{text: "x"}, &fakeEmbedder{dims: 4}, index, &fakeChunkRepo{})

	err := p.Process(context.Background(), testTask())
	require.Error(t, err)
	assert.Empty(t, index.upserted)
}

func TestProcessorExtractionFailure(t *testing.T) {
	extractErr := tika.ErrExtraction
	index := &fakeIndex{}
	p := newTestProcessor(downloadFake("%PDF-1.7"), &fakeExtractor{err: extractErr}, &fakeEmbedder{dims: 4}, index, &fakeChunkRepo{})

	err := p.Process(context.Background(), testTask())
	require.Error(t, err)
	assert.ErrorIs(t, err, tika.ErrExtraction)
	assert.Empty(t, index.ensured, "提取失败后不应触碰向量索引")
}

func TestProcessorReadBackFailure(t *testing.T) {
	repo := &fakeChunkRepo{findErr: errors.New("connection refused")}
	index := &fakeIndex{}
	p := newTestProcessor(downloadFake("%PDF-1.7"), &fakeExtractor{text: strings.Repeat("c", 1200)}, &fakeEmbedder{dims: 4}, index, repo)

	err := p.Process(context.Background(), testTask())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "读取已落库分块失败")
	assert.Empty(t, index.ensured, "分块读回失败后不应触碰向量索引")
}

func TestProcessorEmbeddingFailure(t *testing.T) {
	embedErr := errors.New("embedding unavailable")
	index := &fakeIndex{}
	p := newTestProcessor(downloadFake("%PDF-1.7"), &fakeExtractor{text: strings.Repeat("b", 1200)}, &fakeEmbedder{dims: 4, err: embedErr}, index, &fakeChunkRepo{})

	err := p.Process(context.Background(), testTask())
	require.Error(t, err)
	assert.ErrorIs(t, err, embedErr)
	assert.Empty(t, index.upserted, "向量化失败后不允许以零向量顶替写入")
}

func TestProcessorUpsertFailure(t *testing.T) {
	index := &fakeIndex{upsertErr: errors.New("dimension mismatch")}
	p := newTestProcessor(downloadFake("%PDF-1.7"), &fakeExtractor{text: "contenido breve"}, &fakeEmbedder{dims: 4}, index, &fakeChunkRepo{})

	err := p.Process(context.Background(), testTask())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "写入向量索引失败")
}
