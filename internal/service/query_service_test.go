package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lexsmart-go/internal/config"
	"lexsmart-go/internal/model"
	"lexsmart-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeQuerier struct {
	matches []model.Match
	err     error
	topK    int
}

func (f *fakeQuerier) Query(ctx context.Context, name, namespace string, vector []float32, topK int) ([]model.Match, error) {
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

type fakeLLM struct {
	messages []llm.Message
	answer   string
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	f.messages = messages
	return f.answer, nil
}

func (f *fakeLLM) StreamChatMessages(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, writer llm.MessageWriter) error {
	f.messages = messages
	return writer.WriteMessage(1, []byte(f.answer))
}

func matchWithText(text string) model.Match {
	return model.Match{
		ID:       "LGA-2023-x",
		Score:    0.9,
		Metadata: map[string]interface{}{"text": text},
	}
}

func newTestQueryService(querier *fakeQuerier, llmClient *fakeLLM) QueryService {
	return NewQueryService(
		&fakeEmbedder{},
		querier,
		llmClient,
		config.LLMPromptConfig{TargetLanguage: "Spanish", TopK: 10},
	)
}

func TestAnswerWithContext(t *testing.T) {
	querier := &fakeQuerier{matches: []model.Match{
		matchWithText("Artículo 1: disposiciones generales"),
		matchWithText("Artículo 2: ámbito de aplicación"),
	}}
	llmClient := &fakeLLM{answer: "La respuesta."}
	svc := newTestQueryService(querier, llmClient)

	answer, err := svc.Answer(context.Background(), "¿Cuál es el ámbito?", "regulations-v1", "regulations")
	require.NoError(t, err)
	assert.Equal(t, "La respuesta.", answer)
	assert.Equal(t, 10, querier.topK)

	require.Len(t, llmClient.messages, 2)
	assert.Equal(t, "system", llmClient.messages[0].Role)
	user := llmClient.messages[1].Content

	// 上下文按相关度顺序排列，分隔符区分上下文之间与问题之前
	expected := "Artículo 1: disposiciones generales" +
		"\n\n---\n\n" +
		"Artículo 2: ámbito de aplicación" +
		"\n\n-----\n\n" +
		"¿Cuál es el ámbito?"
	assert.Equal(t, expected, user)
}

func TestAnswerWithoutMatches(t *testing.T) {
	querier := &fakeQuerier{matches: []model.Match{}}
	llmClient := &fakeLLM{answer: "No lo sé."}
	svc := newTestQueryService(querier, llmClient)

	answer, err := svc.Answer(context.Background(), "pregunta sin contexto", "regulations-v1", "regulations")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)

	// 没有命中时增强查询退化为原始问题，不带任何分隔符
	user := llmClient.messages[1].Content
	assert.Equal(t, "pregunta sin contexto", user)
	assert.NotContains(t, user, "---")
}

func TestAnswerRetrievalFailureDegrades(t *testing.T) {
	// 检索侧硬错误降级为无上下文作答，整个问答请求不失败
	querier := &fakeQuerier{err: errors.New("search request failed: 503 Service Unavailable")}
	llmClient := &fakeLLM{answer: "No lo sé."}
	svc := newTestQueryService(querier, llmClient)

	answer, err := svc.Answer(context.Background(), "pregunta con índice caído", "regulations-v1", "regulations")
	require.NoError(t, err)
	assert.Equal(t, "No lo sé.", answer)

	user := llmClient.messages[1].Content
	assert.Equal(t, "pregunta con índice caído", user)
	assert.NotContains(t, user, "---")
}

func TestAnswerEmbeddingFailureDegrades(t *testing.T) {
	querier := &fakeQuerier{}
	llmClient := &fakeLLM{answer: "Sin contexto."}
	svc := NewQueryService(
		&fakeEmbedder{err: errors.New("embedding unavailable")},
		querier,
		llmClient,
		config.LLMPromptConfig{TargetLanguage: "Spanish", TopK: 10},
	)

	answer, err := svc.Answer(context.Background(), "pregunta", "regulations-v1", "regulations")
	require.NoError(t, err)
	assert.Equal(t, "Sin contexto.", answer)
	assert.Equal(t, "pregunta", llmClient.messages[1].Content)
}

func TestAnswerIndexNotReady(t *testing.T) {
	// 索引未就绪时查询侧返回 nil 切片，问答流程照常走完
	querier := &fakeQuerier{matches: nil}
	llmClient := &fakeLLM{answer: "Aún no hay datos."}
	svc := newTestQueryService(querier, llmClient)

	answer, err := svc.Answer(context.Background(), "pregunta", "regulations-v1", "regulations")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
}

func TestPrimerContents(t *testing.T) {
	primer := buildPrimer("Spanish")
	assert.Contains(t, primer, "legal advisor")
	assert.Contains(t, primer, "Regulation Title")
	assert.Contains(t, primer, "Article Number")
	assert.Contains(t, primer, "don't know")
	assert.Contains(t, primer, "Spanish")
}

func TestPrimerDefaultLanguage(t *testing.T) {
	primer := buildPrimer("")
	assert.True(t, strings.Contains(primer, "Spanish"))
}

func TestRetrieveContextSkipsEmptyText(t *testing.T) {
	querier := &fakeQuerier{matches: []model.Match{
		{ID: "a", Metadata: map[string]interface{}{}},
		matchWithText("único fragmento"),
	}}
	svc := newTestQueryService(querier, &fakeLLM{answer: "ok"})

	augmented, err := svc.RetrieveContext(context.Background(), "pregunta", "regulations-v1", "regulations")
	require.NoError(t, err)
	assert.Equal(t, "único fragmento\n\n-----\n\npregunta", augmented)
}
