package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"lexsmart-go/internal/config"
	"lexsmart-go/internal/model"
	"lexsmart-go/internal/repository"
	"lexsmart-go/pkg/embedding"
	"lexsmart-go/pkg/log"
	"lexsmart-go/pkg/tasks"
)

// TextExtractor 抽象文本提取客户端。
type TextExtractor interface {
	ExtractText(fileReader io.Reader, fileName string) (string, error)
}

// VectorIndex 抽象向量索引客户端的写入侧操作。
type VectorIndex interface {
	EnsureIndex(ctx context.Context, name string, dimension int, metric string) error
	Upsert(ctx context.Context, name, namespace string, records []model.UpsertRecord) error
}

// DownloadFunc 从对象存储读取一个对象。
type DownloadFunc func(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error)

// Processor 封装了入库任务处理的所有依赖和逻辑。
type Processor struct {
	download        DownloadFunc
	tikaClient      TextExtractor
	embeddingClient embedding.Client
	indexClient     VectorIndex
	chunkRepo       repository.ChunkRepository
	storageCfg      config.StorageConfig
	embeddingCfg    config.EmbeddingConfig
	vectorCfg       config.VectorIndexConfig
	chunkingCfg     config.ChunkingConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	download DownloadFunc,
	tikaClient TextExtractor,
	embeddingClient embedding.Client,
	indexClient VectorIndex,
	chunkRepo repository.ChunkRepository,
	storageCfg config.StorageConfig,
	embeddingCfg config.EmbeddingConfig,
	vectorCfg config.VectorIndexConfig,
	chunkingCfg config.ChunkingConfig,
) *Processor {
	return &Processor{
		download:        download,
		tikaClient:      tikaClient,
		embeddingClient: embeddingClient,
		indexClient:     indexClient,
		chunkRepo:       chunkRepo,
		storageCfg:      storageCfg,
		embeddingCfg:    embeddingCfg,
		vectorCfg:       vectorCfg,
		chunkingCfg:     chunkingCfg,
	}
}

// Process 是入库任务处理的主函数：下载 -> 提取 -> 分块 -> 向量化 -> 组装 -> 写入索引。
// 任何一步失败都会中止整个任务，由消费者按失败计数决定是否重试。
func (p *Processor) Process(ctx context.Context, task tasks.IngestTask) error {
	log.Infof("[Processor] 开始处理法规文档, Code: %s, FileName: %s", task.Code, task.FileName)

	// 1. 从对象存储下载文件
	log.Infof("[Processor] 步骤1: 从对象存储下载文件, Bucket: %s, Object: %s", p.storageCfg.BucketName, task.ObjectName)
	object, err := p.download(ctx, p.storageCfg.BucketName, task.ObjectName)
	if err != nil {
		log.Errorf("[Processor] 下载文件失败, Object: %s, Error: %v", task.ObjectName, err)
		return fmt.Errorf("从对象存储下载文件失败: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		log.Errorf("[Processor] 从对象流中读取内容到缓冲区失败, Error: %v", err)
		return fmt.Errorf("读取对象流失败: %w", err)
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 文件大小: %d字节", size)
	if size == 0 {
		log.Warnf("[Processor] 文件 '%s' 内容为空, 处理中止", task.FileName)
		return errors.New("文件内容为空")
	}

	// 2. 使用 Tika 提取文本
	log.Info("[Processor] 步骤2: 使用Tika提取文本内容")
	textContent, err := p.tikaClient.ExtractText(bytes.NewReader(buf.Bytes()), task.FileName)
	if err != nil {
		log.Errorf("[Processor] 使用Tika提取文本失败, FileName: %s, Error: %v", task.FileName, err)
		return fmt.Errorf("使用 Tika 提取文本失败: %w", err)
	}
	if textContent == "" {
		log.Warnf("[Processor] Tika提取的文本内容为空, 处理中止, FileName: %s", task.FileName)
		return errors.New("提取的文本内容为空")
	}
	log.Infof("[Processor] 步骤2: 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(textContent))

	// 3. 文本切块
	log.Infof("[Processor] 步骤3: 进行文本分块, maxSize: %d, overlap: %d", p.chunkingCfg.MaxSize, p.chunkingCfg.Overlap)
	chunks := SplitText(textContent, p.chunkingCfg.MaxSize, p.chunkingCfg.Overlap)
	log.Infof("[Processor] 步骤3: 文本分块完成, 共生成 %d 个分块", len(chunks))
	if len(chunks) == 0 {
		log.Warnf("[Processor] 未生成任何文本分块, 处理中止, FileName: %s", task.FileName)
		return errors.New("未生成任何文本分块")
	}

	// 4. 将分块文本落库。重复入库前先清理旧分块，避免累计膨胀（幂等）
	log.Info("[Processor] 步骤4: 开始将分块文本存入数据库")
	if err := p.chunkRepo.DeleteByCode(task.Code); err != nil {
		log.Warnf("[Processor] 清理 regulation_chunks 旧记录失败 (code=%s): %v", task.Code, err)
	}
	dbChunks := make([]*model.RegulationChunk, 0, len(chunks))
	for i, chunk := range chunks {
		dbChunks = append(dbChunks, &model.RegulationChunk{
			Code:         task.Code,
			ChunkIndex:   i,
			TextContent:  chunk,
			ModelVersion: p.embeddingCfg.Model,
		})
	}
	if err := p.chunkRepo.BatchCreate(dbChunks); err != nil {
		log.Errorf("[Processor] 步骤4: 批量保存文本分块到数据库失败, Error: %v", err)
		return fmt.Errorf("批量保存文本分块失败: %w", err)
	}
	log.Infof("[Processor] 步骤4: 成功将 %d 个分块存入数据库", len(dbChunks))

	// 5. 从数据库按 chunk_index 顺序读回分块再向量化，保证索引内容与落库内容一致
	savedChunks, err := p.chunkRepo.FindByCode(task.Code)
	if err != nil {
		log.Errorf("[Processor] 步骤5: 读取已落库分块失败, Code: %s, Error: %v", task.Code, err)
		return fmt.Errorf("读取已落库分块失败: %w", err)
	}
	if len(savedChunks) == 0 {
		log.Warnf("[Processor] 步骤5: 数据库中没有分块记录, 处理中止, Code: %s", task.Code)
		return errors.New("数据库中没有分块记录")
	}
	texts := make([]string, len(savedChunks))
	for i, chunk := range savedChunks {
		texts[i] = chunk.TextContent
	}

	// 批量向量化。一次失败即中止，不允许用零向量顶替
	log.Infof("[Processor] 步骤5: 开始批量向量化, model: %s, 分块数: %d", p.embeddingCfg.Model, len(texts))
	vectors, err := p.embeddingClient.CreateEmbeddings(ctx, texts)
	if err != nil {
		log.Errorf("[Processor] 批量向量化失败, Code: %s, Error: %v", task.Code, err)
		return fmt.Errorf("批量向量化失败: %w", err)
	}
	log.Infof("[Processor] 步骤5: 向量化完成, 共 %d 条向量", len(vectors))

	// 6. 组装向量记录
	log.Info("[Processor] 步骤6: 组装向量记录")
	records, err := AssembleRecords(texts, vectors, task.Metadata)
	if err != nil {
		log.Errorf("[Processor] 组装向量记录失败, Code: %s, Error: %v", task.Code, err)
		return fmt.Errorf("组装向量记录失败: %w", err)
	}

	// 7. 确保索引存在并写入
	log.Infof("[Processor] 步骤7: 确保向量索引存在并写入, Index: %s, Namespace: %s", task.IndexName, task.Namespace)
	if err := p.indexClient.EnsureIndex(ctx, task.IndexName, p.embeddingCfg.Dimensions, p.vectorCfg.Metric); err != nil {
		log.Errorf("[Processor] 确保向量索引存在失败, Index: %s, Error: %v", task.IndexName, err)
		return fmt.Errorf("确保向量索引存在失败: %w", err)
	}
	if err := p.indexClient.Upsert(ctx, task.IndexName, task.Namespace, records); err != nil {
		log.Errorf("[Processor] 写入向量索引失败, Index: %s, Error: %v", task.IndexName, err)
		return fmt.Errorf("写入向量索引失败: %w", err)
	}

	log.Infof("[Processor] 法规文档处理成功完成, Code: %s, 共写入 %d 条记录", task.Code, len(records))
	return nil
}
