// Package main 是问答服务的入口点。
package main

import (
	"aegis-rag-go/internal/config"
	"aegis-rag-go/internal/handler"
	"aegis-rag-go/internal/middleware"
	"aegis-rag-go/internal/model"
	"aegis-rag-go/internal/pipeline"
	"aegis-rag-go/internal/repository"
	"aegis-rag-go/internal/service"
	"aegis-rag-go/pkg/database"
	"aegis-rag-go/pkg/es"
	"aegis-rag-go/pkg/kafka"
	"aegis-rag-go/pkg/llm"
	"aegis-rag-go/pkg/log"
	"aegis-rag-go/pkg/storage"
	"aegis-rag-go/pkg/tika"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	// 1. 初始化配置
	configPath := os.Getenv("AEGIS_CONFIG")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. 初始化搜索引擎并确保索引存在
	esClient, err := es.NewClient(cfg.Elasticsearch)
	if err != nil {
		log.Fatal("es 初始化失败", err)
	}
	if err := es.EnsureIndex(ctx, esClient, cfg.Elasticsearch.IndexName); err != nil {
		log.Fatal("索引初始化失败", err)
	}

	// 4. 可选组件：入库台账(MySQL)、对话历史与重试计数(Redis)、上传暂存(MinIO)与任务队列(Kafka)
	var jobRepo repository.IngestJobRepository
	if cfg.Database.MySQL.DSN != "" {
		db, err := database.NewMySQL(cfg.Database.MySQL.DSN, &model.IngestJob{})
		if err != nil {
			log.Fatal("MySQL 初始化失败", err)
		}
		jobRepo = repository.NewIngestJobRepository(db)
	}

	var rdb *redis.Client
	var conversationService service.ConversationService
	if cfg.Database.Redis.Addr != "" {
		rdb, err = database.NewRedis(ctx, cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		if err != nil {
			log.Fatal("Redis 初始化失败", err)
		}
		conversationService = service.NewConversationService(repository.NewConversationRepository(rdb))
	}

	var store storage.ObjectStore
	var producer kafka.TaskProducer
	queueEnabled := cfg.MinIO.Endpoint != "" && cfg.Kafka.Brokers != "" && rdb != nil
	if queueEnabled {
		store, err = storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			log.Fatal("MinIO 初始化失败", err)
		}
		p := kafka.NewProducer(cfg.Kafka)
		defer p.Close()
		producer = p
	} else {
		log.Warnf("未配置 MinIO/Kafka/Redis，上传文件的异步入库不可用")
	}

	// 5. 初始化 Service (依赖注入)
	tikaClient := tika.NewClient(cfg.Tika)
	llmClient := llm.NewClient(cfg.LLM)
	processor := pipeline.NewProcessor(tikaClient, esClient, cfg.Elasticsearch, cfg.Ingestion, store, jobRepo)
	searchService := service.NewSearchService(esClient, cfg.Elasticsearch, cfg.Retrieval)
	chatService := service.NewChatService(searchService, llmClient, cfg.LLM)
	documentService := service.NewDocumentService(processor, store, producer, jobRepo, cfg.Ingestion)

	// 6. 启动后台 Kafka 消费者
	if queueEnabled {
		go kafka.StartConsumer(ctx, cfg.Kafka, processor, kafka.NewRedisCounter(rdb))
	}

	// 7. 导入种子目录中的文档（按路径生成稳定 doc_id，重复导入即覆盖）
	if cfg.Ingestion.SeedDir != "" {
		go seedDocuments(ctx, cfg.Ingestion.SeedDir, processor)
	}

	// 8. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	searchHandler := handler.NewSearchHandler(searchService, cfg.Retrieval.TopK)
	chatHandler := handler.NewChatHandler(chatService, conversationService, cfg.Retrieval.TopK)
	documentHandler := handler.NewDocumentHandler(documentService)

	apiV1 := r.Group("/api/v1")
	{
		documents := apiV1.Group("/documents")
		{
			documents.POST("/text", documentHandler.IngestText)
			documents.POST("/upload", documentHandler.Upload)
			documents.GET("/:docId/status", documentHandler.GetStatus)
		}
		apiV1.GET("/search", searchHandler.Search)
		apiV1.GET("/chunks", searchHandler.ListChunks)
		apiV1.POST("/chat", chatHandler.Ask)
		if conversationService != nil {
			apiV1.GET("/conversations/:sessionId", handler.NewConversationHandler(conversationService).GetConversation)
		}
	}
	r.GET("/chat/ws", chatHandler.Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}
	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// seedDocuments 扫描目录下的文件并逐个入库。
func seedDocuments(ctx context.Context, dir string, processor *pipeline.Processor) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Infof("seedDocuments: 目录 '%s' 不存在或不可用，跳过初始化导入", dir)
		return
	}

	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = d.Name()
		}
		docID := pipeline.DocIDFromPath(rel)
		n, err := processor.IngestFile(ctx, docID, path)
		if err != nil {
			log.Warnf("seedDocuments: 导入失败: %s (doc_id=%s, 已写入 %d 个分块), err=%v", path, docID, n, err)
			return nil
		}
		log.Infof("seedDocuments: 导入完成: %s (doc_id=%s, %d 个分块)", path, docID, n)
		return nil
	})
	if walkErr != nil {
		log.Warnf("seedDocuments: 遍历目录发生错误: %v", walkErr)
	}
}
