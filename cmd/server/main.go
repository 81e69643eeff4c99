// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"lexsmart-go/internal/config"
	"lexsmart-go/internal/handler"
	"lexsmart-go/internal/middleware"
	"lexsmart-go/internal/model"
	"lexsmart-go/internal/pipeline"
	"lexsmart-go/internal/repository"
	"lexsmart-go/internal/service"
	"lexsmart-go/pkg/database"
	"lexsmart-go/pkg/embedding"
	"lexsmart-go/pkg/kafka"
	"lexsmart-go/pkg/llm"
	"lexsmart-go/pkg/log"
	"lexsmart-go/pkg/storage"
	"lexsmart-go/pkg/tika"
	"lexsmart-go/pkg/vectorindex"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf
	if err := cfg.Validate(); err != nil {
		panic(fmt.Errorf("配置校验失败: %w", err))
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、对象存储与消息队列
	database.InitMySQL(cfg.Database.MySQL.DSN)
	if err := database.DB.AutoMigrate(&model.RegulationRecord{}, &model.RegulationChunk{}); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.Storage)
	indexClient, err := vectorindex.NewClient(cfg.VectorIndex)
	if err != nil {
		log.Fatalf("向量索引客户端初始化失败: %v", err)
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	regulationRepo := repository.NewRegulationRepository(database.DB)
	chunkRepo := repository.NewChunkRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.RDB)

	// 5. 初始化 Service (依赖注入)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	ingestService := service.NewIngestService(regulationRepo, cfg.Storage, cfg.VectorIndex, cfg.Dictionary)
	queryService := service.NewQueryService(embeddingClient, indexClient, llmClient, cfg.LLM.Prompt)
	conversationService := service.NewConversationService(conversationRepo)
	chatService := service.NewChatService(queryService, llmClient, conversationRepo, cfg.LLM.Prompt, cfg.VectorIndex)

	// 6. 初始化入库管道 (Processor)
	processor := pipeline.NewProcessor(
		storage.Download,
		tikaClient,
		embeddingClient,
		indexClient,
		chunkRepo,
		cfg.Storage,
		cfg.Embedding,
		cfg.VectorIndex,
		cfg.Chunking,
	)

	// 7. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 7.1 初始化导入 initfile 目录：走标准上传流程入库，已导入则跳过
	initCtx, cancelInit := context.WithCancel(context.Background())
	defer cancelInit()
	go initSeedFiles(initCtx, "initfile", cfg.Dictionary, regulationRepo, ingestService)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// 法规文档上传
		regulations := apiV1.Group("/regulations")
		{
			regulations.POST("/upload", handler.NewUploadHandler(ingestService).UploadRegulation)
		}

		// 检索增强问答
		apiV1.POST("/query", handler.NewQueryHandler(queryService, cfg.VectorIndex).Answer)

		// 对话历史
		conversation := apiV1.Group("/conversation")
		{
			conversation.GET("", handler.NewConversationHandler(conversationService).GetHistory)
		}

		// 运维路由
		admin := apiV1.Group("/admin")
		{
			admin.DELETE("/namespaces/:namespace", handler.NewAdminHandler(indexClient, cfg.VectorIndex).ResetNamespace)
		}
	}
	// Chat 路由 (WebSocket)
	r.GET("/chat", handler.NewChatHandler(chatService).Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者是一个循环，会在程序退出时自然结束。
	// 如果需要更精细的控制，可以在 StartConsumer 中实现一个关闭通道。
	log.Info("服务已优雅关闭")
}

// initSeedFiles 扫描目录下按命名约定组织的 PDF 并通过标准上传流程导入（幂等）。
// 文件名格式为 {体裁编码}#{年份}#{编号}#{主题编码}#{状态编码}.pdf，
// 展示名通过字典反查得到。
func initSeedFiles(ctx context.Context, dir string, dict config.DictionaryConfig, regulationRepo repository.RegulationRepository, ingestSvc service.IngestService) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Infof("initSeedFiles: 目录 '%s' 不存在或不可用，跳过初始化导入", dir)
		return
	}

	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(info.Name()), ".pdf") {
			return nil
		}

		meta, perr := parseSeedFileName(info.Name(), dict)
		if perr != nil {
			log.Warnf("initSeedFiles: 文件名不符合命名约定，跳过: %s, err=%v", info.Name(), perr)
			return nil
		}

		// 幂等检查：同键记录已落库则跳过
		if seedAlreadyImported(regulationRepo, dict.Genres[meta.Genre], meta.SortKey()) {
			log.Infof("initSeedFiles: 已存在，跳过: %s (code=%s)", info.Name(), meta.Code)
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			log.Warnf("initSeedFiles: 打开文件失败: %s, err=%v", path, err)
			return nil
		}
		defer f.Close()

		if _, err := ingestSvc.Ingest(ctx, meta, f, info.Size()); err != nil {
			log.Warnf("initSeedFiles: 导入失败: %s, err=%v", path, err)
			return nil
		}
		log.Infof("initSeedFiles: 导入完成并已触发向量化: %s", info.Name())
		return nil
	})
	if walkErr != nil {
		log.Warnf("initSeedFiles: 遍历目录发生错误: %v", walkErr)
	}
}

// seedAlreadyImported 按分区键+排序键精确检查该法规元数据是否已落库。
// 查询出错时按未导入处理，由落库侧的同键覆盖兜底。
func seedAlreadyImported(repo repository.RegulationRepository, partitionKey, sortKey string) bool {
	record, err := repo.FindByKeys(partitionKey, sortKey)
	if err != nil {
		log.Warnf("initSeedFiles: 查询已入库记录失败, partition: %s, sort: %s, err=%v", partitionKey, sortKey, err)
		return false
	}
	return record != nil
}

// parseSeedFileName 解析种子文件名并还原文档元数据。
func parseSeedFileName(fileName string, dict config.DictionaryConfig) (model.Metadata, error) {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	parts := strings.Split(base, "#")
	if len(parts) != 5 {
		return model.Metadata{}, fmt.Errorf("期望 5 段，实际 %d 段", len(parts))
	}

	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return model.Metadata{}, fmt.Errorf("年份非法: %s", parts[1])
	}

	genre, ok := reverseLookup(dict.Genres, parts[0])
	if !ok {
		return model.Metadata{}, fmt.Errorf("未知的体裁编码: %s", parts[0])
	}
	theme, ok := reverseLookup(dict.Themes, parts[3])
	if !ok {
		return model.Metadata{}, fmt.Errorf("未知的主题编码: %s", parts[3])
	}
	status, ok := reverseLookup(dict.Statuses, parts[4])
	if !ok {
		return model.Metadata{}, fmt.Errorf("未知的状态编码: %s", parts[4])
	}

	return model.Metadata{
		Genre:      genre,
		Status:     status,
		Dependency: "seed",
		Theme:      theme,
		Title:      parts[2],
		Code:       parts[2],
		Year:       year,
		Month:      "01",
		Day:        1,
	}, nil
}

// reverseLookup 在 展示名->编码 的字典里按编码反查展示名。
func reverseLookup(m map[string]string, code string) (string, bool) {
	for name, c := range m {
		if c == code {
			return name, true
		}
	}
	return "", false
}
