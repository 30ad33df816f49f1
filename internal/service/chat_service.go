package service

import (
	"aegis-rag-go/internal/config"
	"aegis-rag-go/internal/model"
	"aegis-rag-go/pkg/llm"
	"aegis-rag-go/pkg/log"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"
)

// NoResultsMessage 是检索无命中时直接返回给用户的固定回答，此时不会调用模型。
const NoResultsMessage = "No relevant information found in the documents."

const contextSeparator = "\n\n---\n\n"

const ragPromptTemplate = `
You are an AI assistant that answers questions using only the retrieved documents.
If the retrieved documents don't contain relevant information, say:
"I'm not sure about that based on the available information."

### Instructions:
- Use only the provided context (retrieved docs).
- Keep answers clear, polite, concise and short.
- Do not invent information outside the context.
- When useful, structure your response with bullet points or short lists.

RETRIEVED DOCUMENTS:
{context}

USER QUESTION:
{question}

YOUR ANSWER:
`

// ChatService 是聊天前端唯一需要的入口。两种模式都总是产出可展示的文本：
// 检索或生成过程中的任何错误都会被转换成一条错误提示，而不是返回 error。
type ChatService interface {
	// GenerateAnswer 阻塞直到得到完整回答。
	GenerateAnswer(ctx context.Context, query string, topK int) string
	// StreamAnswer 返回逐段到达的回答片段；序列只能迭代一次，提前 break 会取消上游请求。
	StreamAnswer(ctx context.Context, query string, topK int) iter.Seq[string]
}

type chatService struct {
	searchService SearchService
	llmClient     llm.Client
	timeout       time.Duration
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(searchService SearchService, llmClient llm.Client, llmCfg config.LLMConfig) ChatService {
	return &chatService{
		searchService: searchService,
		llmClient:     llmClient,
		timeout:       llmCfg.Timeout,
	}
}

func (s *chatService) GenerateAnswer(ctx context.Context, query string, topK int) string {
	var answer strings.Builder
	for fragment, err := range s.answer(ctx, query, topK, false) {
		if err != nil {
			return displayError(err)
		}
		answer.WriteString(fragment)
	}
	return answer.String()
}

func (s *chatService) StreamAnswer(ctx context.Context, query string, topK int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for fragment, err := range s.answer(ctx, query, topK, true) {
			if err != nil {
				yield(displayError(err))
				return
			}
			if !yield(fragment) {
				return
			}
		}
	}
}

// answer 是批量与流式两种模式共用的流程：检索 -> 组装上下文 -> 调用模型。
func (s *chatService) answer(ctx context.Context, query string, topK int, stream bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		hits, err := s.searchService.Search(ctx, query, topK)
		if err != nil {
			yield("", err)
			return
		}
		if len(hits) == 0 {
			log.Infof("[ChatService] 检索无命中, query: '%s'", query)
			yield(NoResultsMessage, nil)
			return
		}

		prompt := BuildPrompt(BuildContext(hits), query)

		genCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			genCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		for fragment, err := range s.llmClient.Generate(genCtx, prompt, stream) {
			if !yield(fragment, err) || err != nil {
				return
			}
		}
	}
}

// BuildContext 将命中结果格式化为 "[Document i]\n内容"（从 1 开始编号），并以分隔线连接。
func BuildContext(hits []model.RetrievalHit) string {
	entries := make([]string, 0, len(hits))
	for i, hit := range hits {
		entries = append(entries, fmt.Sprintf("[Document %d]\n%s", i+1, hit.Content))
	}
	return strings.Join(entries, contextSeparator)
}

// BuildPrompt 将上下文与原始问题代入固定的指令模板。
func BuildPrompt(contextText, query string) string {
	return strings.NewReplacer("{context}", contextText, "{question}", query).Replace(ragPromptTemplate)
}

func displayError(err error) string {
	if errors.Is(err, model.ErrGeneration) {
		log.Errorf("[ChatService] 生成回答失败: %v", err)
		return fmt.Sprintf("Error generating response: %v", err)
	}
	log.Errorf("[ChatService] RAG 流程失败: %v", err)
	return fmt.Sprintf("Error in RAG process: %v", err)
}
