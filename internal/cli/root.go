// Package cli 实现命令行工具 aegis：本地入库、检索与问答，不依赖 HTTP 服务。
package cli

import (
	"aegis-rag-go/internal/config"
	"aegis-rag-go/internal/pipeline"
	"aegis-rag-go/internal/service"
	"aegis-rag-go/pkg/es"
	"aegis-rag-go/pkg/llm"
	"aegis-rag-go/pkg/log"
	"aegis-rag-go/pkg/tika"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// 全局标志
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "aegis",
	Short:         "Document ingestion and retrieval-augmented question answering",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		config.Conf = cfg
		log.Init(logLevel, "console", "")
		return nil
	},
}

// Execute 执行根命令，收到中断信号时取消正在进行的请求。
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer log.Sync()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs/config.yaml", "Config file path (empty to use env only)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(chunksCmd)
	rootCmd.AddCommand(askCmd)
}

// app 聚合命令行所需的组件。
type app struct {
	processor *pipeline.Processor
	search    service.SearchService
	chat      service.ChatService
}

// newApp 按当前配置连接搜索引擎并确保索引存在。
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Conf
	esClient, err := es.NewClient(cfg.Elasticsearch)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}
	if err := es.EnsureIndex(ctx, esClient, cfg.Elasticsearch.IndexName); err != nil {
		return nil, err
	}

	searchService := service.NewSearchService(esClient, cfg.Elasticsearch, cfg.Retrieval)
	return &app{
		processor: pipeline.NewProcessor(tika.NewClient(cfg.Tika), esClient, cfg.Elasticsearch, cfg.Ingestion, nil, nil),
		search:    searchService,
		chat:      service.NewChatService(searchService, llm.NewClient(cfg.LLM), cfg.LLM),
	}, nil
}
