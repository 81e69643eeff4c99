package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"lexsmart-go/internal/config"
	"lexsmart-go/internal/model"
	"lexsmart-go/internal/repository"
	"lexsmart-go/pkg/kafka"
	"lexsmart-go/pkg/log"
	"lexsmart-go/pkg/storage"
	"lexsmart-go/pkg/tasks"
)

// IngestService 接口定义了法规文档入库相关的业务操作。
type IngestService interface {
	// BuildFileName 按字典把元数据的展示名翻译成编码，派生对象文件名。
	BuildFileName(meta model.Metadata) (string, error)
	// UploadPDF 上传文件流到对象存储，返回是否成功。
	UploadPDF(ctx context.Context, file io.Reader, size int64, fileName string) bool
	// StoreMetadata 将元数据落库，返回 HTTP 风格状态码，200 表示成功。
	StoreMetadata(meta model.Metadata) int
	// EnqueueIngest 发送入库任务到 Kafka。
	EnqueueIngest(meta model.Metadata, fileName string) error
	// Ingest 串起完整的上传流程：元数据 -> 文件 -> 上传 -> 落库 -> 入队。
	Ingest(ctx context.Context, meta model.Metadata, file io.Reader, size int64) (string, error)
}

type ingestService struct {
	regulationRepo repository.RegulationRepository
	storageCfg     config.StorageConfig
	vectorCfg      config.VectorIndexConfig
	dictionary     config.DictionaryConfig
}

// NewIngestService 创建一个新的 IngestService 实例。
func NewIngestService(
	regulationRepo repository.RegulationRepository,
	storageCfg config.StorageConfig,
	vectorCfg config.VectorIndexConfig,
	dictionary config.DictionaryConfig,
) IngestService {
	return &ingestService{
		regulationRepo: regulationRepo,
		storageCfg:     storageCfg,
		vectorCfg:      vectorCfg,
		dictionary:     dictionary,
	}
}

// BuildFileName 派生对象文件名 {体裁编码}#{年份}#{编号}#{主题编码}#{状态编码}.pdf。
// 字典里查不到的展示名视为调用方错误。
func (s *ingestService) BuildFileName(meta model.Metadata) (string, error) {
	genreCode, ok := s.dictionary.Genres[meta.Genre]
	if !ok {
		return "", fmt.Errorf("未知的体裁: %s", meta.Genre)
	}
	themeCode, ok := s.dictionary.Themes[meta.Theme]
	if !ok {
		return "", fmt.Errorf("未知的主题: %s", meta.Theme)
	}
	statusCode, ok := s.dictionary.Statuses[meta.Status]
	if !ok {
		return "", fmt.Errorf("未知的状态: %s", meta.Status)
	}
	return fmt.Sprintf("%s#%d#%s#%s#%s.pdf", genreCode, meta.Year, meta.Code, themeCode, statusCode), nil
}

// UploadPDF 上传 PDF 流到配置的存储桶。
func (s *ingestService) UploadPDF(ctx context.Context, file io.Reader, size int64, fileName string) bool {
	return storage.Upload(ctx, file, size, s.storageCfg.BucketName, fileName)
}

// StoreMetadata 将元数据以 JSON 快照写入元数据表。
// 分区键是体裁编码，排序键是 {code}#{theme}#{status}。
func (s *ingestService) StoreMetadata(meta model.Metadata) int {
	genreCode, ok := s.dictionary.Genres[meta.Genre]
	if !ok {
		log.Errorf("[IngestService] 元数据落库失败: 未知的体裁 '%s'", meta.Genre)
		return http.StatusBadRequest
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		log.Errorf("[IngestService] 序列化元数据失败, Code: %s, Error: %v", meta.Code, err)
		return http.StatusInternalServerError
	}

	record := &model.RegulationRecord{
		PartitionKey: genreCode,
		SortKey:      meta.SortKey(),
		Payload:      string(payload),
	}
	return s.regulationRepo.PutItem(record)
}

// EnqueueIngest 发送入库任务，对象名与文件名一致。
func (s *ingestService) EnqueueIngest(meta model.Metadata, fileName string) error {
	task := tasks.IngestTask{
		Code:       meta.Code,
		ObjectName: fileName,
		FileName:   fileName,
		IndexName:  s.vectorCfg.IndexName,
		Namespace:  s.vectorCfg.Namespace,
		Metadata:   meta,
	}
	return kafka.ProduceIngestTask(task)
}

// Ingest 驱动上传状态机走完整个流程，返回派生的文件名。
// 上传失败或落库失败都会中止流程，不发送入库任务。
func (s *ingestService) Ingest(ctx context.Context, meta model.Metadata, file io.Reader, size int64) (string, error) {
	workflow := NewUploadWorkflow()
	if err := workflow.SetMetadata(meta); err != nil {
		return "", err
	}
	if err := workflow.AttachFile(file, size); err != nil {
		return "", err
	}

	fileName, err := s.BuildFileName(workflow.Metadata())
	if err != nil {
		return "", err
	}

	log.Infof("[IngestService] 开始上传法规文档, Code: %s, FileName: %s", meta.Code, fileName)
	reader, fileSize := workflow.File()
	if ok := s.UploadPDF(ctx, reader, fileSize, fileName); !ok {
		return "", fmt.Errorf("上传 PDF 到对象存储失败: %s", fileName)
	}
	if err := workflow.MarkUploaded(); err != nil {
		return "", err
	}

	// 元数据带上派生的公开访问地址再落库
	meta.URL = storage.ObjectURL(s.storageCfg.BucketName, s.storageCfg.Region, fileName)
	if status := s.StoreMetadata(meta); status != http.StatusOK {
		return "", fmt.Errorf("元数据落库失败, 状态码: %d", status)
	}

	if err := s.EnqueueIngest(meta, fileName); err != nil {
		log.Errorf("[IngestService] 发送入库任务到Kafka失败, Code: %s, Error: %v", meta.Code, err)
		return "", fmt.Errorf("发送入库任务失败: %w", err)
	}

	log.Infof("[IngestService] 法规文档上传完成并已入队, Code: %s, FileName: %s", meta.Code, fileName)
	return fileName, nil
}
