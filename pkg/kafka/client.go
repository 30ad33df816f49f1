// Package kafka 提供了入库任务队列的生产者与消费者。
package kafka

import (
	"aegis-rag-go/internal/config"
	"aegis-rag-go/pkg/log"
	"aegis-rag-go/pkg/tasks"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// TaskProcessor defines the interface for any service that can process an ingest task.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IngestTask) error
}

// TaskProducer 发送入库任务。
type TaskProducer interface {
	ProduceIngestTask(ctx context.Context, task tasks.IngestTask) error
}

// Producer 是 TaskProducer 的 kafka-go 实现。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

// ProduceIngestTask 发送一个入库任务到 Kafka，以 doc_id 作为消息 key。
func (p *Producer) ProduceIngestTask(ctx context.Context, task tasks.IngestTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.DocID),
		Value: taskBytes,
	})
}

// Close 关闭底层 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// retryBackoff 是同一任务两次处理之间的基础等待时间，第 n 次失败后等待 n 倍。
const retryBackoff = 2 * time.Second

func attemptsKey(docID string) string {
	return fmt.Sprintf("kafka:attempts:%s", docID)
}

// AttemptCounter 记录入库任务的失败次数。计数保存在外部存储中，消费者重启后仍然有效。
type AttemptCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type redisCounter struct {
	rdb *redis.Client
}

// NewRedisCounter 返回基于 Redis 的 AttemptCounter，计数 24 小时后过期。
func NewRedisCounter(rdb *redis.Client) AttemptCounter {
	return &redisCounter{rdb: rdb}
}

func (c *redisCounter) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = c.rdb.Expire(ctx, key, 24*time.Hour).Err()
	return n, nil
}

func (c *redisCounter) Reset(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// StartConsumer 启动一个 Kafka 消费者来处理入库任务，直到 ctx 被取消。
// consumer group 不会重新投递未提交的消息，所以失败的任务在这里原地重试，
// 失败次数记录在 counter 中；达到 max_attempts 后提交 offset 放弃该任务。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, counter AttemptCounter) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}
		log.Infof("收到 Kafka 消息: offset %d", m.Offset)

		var task tasks.IngestTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			commit(ctx, r, m)
			continue
		}

		if !handleTask(ctx, processor, counter, task, cfg.MaxAttempts, retryBackoff) {
			// 只有 ctx 被取消时才不提交，重启后从该消息继续
			log.Info("Kafka 消费者已停止")
			return
		}
		commit(ctx, r, m)
	}
}

// handleTask 处理一个任务，失败时等待后重试，直到成功或失败次数达到 maxAttempts。
// 返回 true 表示该消息已有结论（成功或放弃），可以提交 offset；ctx 被取消时返回 false。
func handleTask(ctx context.Context, processor TaskProcessor, counter AttemptCounter, task tasks.IngestTask, maxAttempts int64, backoff time.Duration) bool {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	key := attemptsKey(task.DocID)
	var local int64
	for {
		err := processor.Process(ctx, task)
		if err == nil {
			log.Infof("入库任务处理成功: DocID=%s", task.DocID)
			if err := counter.Reset(ctx, key); err != nil {
				log.Warnf("清除任务失败计数失败: DocID=%s, Error: %v", task.DocID, err)
			}
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		local++
		attempts := local
		if n, incErr := counter.Incr(ctx, key); incErr != nil {
			log.Warnf("记录任务失败次数失败，使用进程内计数: DocID=%s, Error: %v", task.DocID, incErr)
		} else if n > attempts {
			attempts = n
		}
		log.Errorf("处理入库任务失败 (%d/%d): DocID=%s, Error: %v", attempts, maxAttempts, task.DocID, err)

		if attempts >= maxAttempts {
			log.Errorf("入库任务失败 %d 次，提交 offset 终止重试: DocID=%s", attempts, task.DocID)
			if err := counter.Reset(ctx, key); err != nil {
				log.Warnf("清除任务失败计数失败: DocID=%s, Error: %v", task.DocID, err)
			}
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff * time.Duration(attempts)):
		}
	}
}

func commit(ctx context.Context, r *kafka.Reader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
