package service

import (
	"context"
	"fmt"
	"strings"

	"lexsmart-go/internal/config"
	"lexsmart-go/internal/model"
	"lexsmart-go/pkg/embedding"
	"lexsmart-go/pkg/llm"
	"lexsmart-go/pkg/log"
)

// 拼接增强查询时使用的分隔符。上下文之间用短分隔线，
// 上下文整体与用户问题之间用长分隔线，便于模型区分边界。
const (
	contextSeparator = "\n\n---\n\n"
	querySeparator   = "\n\n-----\n\n"
)

// VectorQuerier 抽象向量索引的查询侧操作。
type VectorQuerier interface {
	Query(ctx context.Context, name, namespace string, vector []float32, topK int) ([]model.Match, error)
}

// QueryService 定义了检索增强问答的业务接口。
type QueryService interface {
	// Answer 执行一次完整的检索增强问答，返回模型的原始回答文本。
	Answer(ctx context.Context, query, indexName, namespace string) (string, error)
	// RetrieveContext 检索相关分块并拼接为增强查询。
	// 没有命中时返回原始问题，由模型按引导语自行回答"不知道"。
	RetrieveContext(ctx context.Context, query, indexName, namespace string) (string, error)
}

type queryService struct {
	embeddingClient embedding.Client
	indexClient     VectorQuerier
	llmClient       llm.Client
	promptCfg       config.LLMPromptConfig
}

// NewQueryService 创建一个新的 QueryService 实例。
func NewQueryService(
	embeddingClient embedding.Client,
	indexClient VectorQuerier,
	llmClient llm.Client,
	promptCfg config.LLMPromptConfig,
) QueryService {
	return &queryService{
		embeddingClient: embeddingClient,
		indexClient:     indexClient,
		llmClient:       llmClient,
		promptCfg:       promptCfg,
	}
}

// RetrieveContext 把问题向量化后在指定索引的 namespace 内检索 topK 条分块，
// 按相关度顺序拼接为增强查询。
// 检索环节的任何失败都降级为"无上下文作答"，不会让整个问答请求失败。
func (s *queryService) RetrieveContext(ctx context.Context, query, indexName, namespace string) (string, error) {
	vector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		log.Warnf("[QueryService] 问题向量化失败, 以原始问题继续, error: %v", err)
		return query, nil
	}

	matches, err := s.indexClient.Query(ctx, indexName, namespace, vector, s.promptCfg.TopK)
	if err != nil {
		log.Warnf("[QueryService] 向量检索失败, 以原始问题继续, error: %v", err)
		return query, nil
	}

	texts := make([]string, 0, len(matches))
	for _, match := range matches {
		if text := match.Text(); text != "" {
			texts = append(texts, text)
		}
	}

	// 索引未就绪或没有命中时退化为纯问题，问答流程照常走完
	if len(texts) == 0 {
		log.Warnf("[QueryService] 没有检索到相关上下文, 以原始问题继续, query: %s", query)
		return query, nil
	}

	log.Infof("[QueryService] 检索到 %d 条相关上下文", len(texts))
	return strings.Join(texts, contextSeparator) + querySeparator + query, nil
}

// Answer 执行检索增强问答，模型输出原样返回，不做任何后处理。
func (s *queryService) Answer(ctx context.Context, query, indexName, namespace string) (string, error) {
	augmented, err := s.RetrieveContext(ctx, query, indexName, namespace)
	if err != nil {
		return "", err
	}

	messages := []llm.Message{
		{Role: "system", Content: buildPrimer(s.promptCfg.TargetLanguage)},
		{Role: "user", Content: augmented},
	}
	answer, err := s.llmClient.Complete(ctx, messages, nil)
	if err != nil {
		return "", fmt.Errorf("调用大模型失败: %w", err)
	}
	return answer, nil
}

// buildPrimer 构造法律问答的引导语。
// 回答必须翻译成目标语言，与检索内容的语言无关。
func buildPrimer(targetLanguage string) string {
	if targetLanguage == "" {
		targetLanguage = "Spanish"
	}
	var sb strings.Builder
	sb.WriteString("You are a legal advisor specialized in regulatory documents. ")
	sb.WriteString("Answer the user's question using only the regulation excerpts provided before the question. ")
	sb.WriteString("When the answer is found, structure it with the following fields where applicable: ")
	sb.WriteString("Regulation Title, Agency, Promulgated on, Code, Article Number, Subsection Numbers. ")
	sb.WriteString("If the excerpts do not contain the answer, say that you don't know instead of guessing. ")
	sb.WriteString(fmt.Sprintf("You MUST translate your final answer into %s.", targetLanguage))
	return sb.String()
}
