package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextEmpty(t *testing.T) {
	assert.Nil(t, SplitText("", 1000, 100))
}

func TestSplitTextShortText(t *testing.T) {
	chunks := SplitText("corto", 1000, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "corto", chunks[0])
}

func TestSplitTextMaxSize(t *testing.T) {
	text := strings.Repeat("a", 2500)
	chunks := SplitText(text, 1000, 100)
	for i, chunk := range chunks {
		assert.LessOrEqualf(t, utf8.RuneCountInString(chunk), 1000, "分块 %d 超出上限", i)
	}
}

func TestSplitTextPlainTextChunkCount(t *testing.T) {
	// 没有任何自然边界的 2500 字符文本：1000 + 1000 + 700（含两处 100 重叠）
	text := strings.Repeat("a", 2500)
	chunks := SplitText(text, 1000, 100)
	require.Len(t, chunks, 3)
	assert.Equal(t, 1000, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 1000, utf8.RuneCountInString(chunks[1]))
	assert.Equal(t, 700, utf8.RuneCountInString(chunks[2]))
}

func TestSplitTextOverlap(t *testing.T) {
	// 用位置可区分的字符验证重叠：后一块的开头等于前一块的结尾
	var sb strings.Builder
	for i := 0; i < 2500; i++ {
		sb.WriteRune(rune('a' + i%26))
	}
	chunks := SplitText(sb.String(), 1000, 100)
	require.Greater(t, len(chunks), 1)
	for i := 0; i < len(chunks)-1; i++ {
		prev := []rune(chunks[i])
		next := []rune(chunks[i+1])
		tail := string(prev[len(prev)-100:])
		head := string(next[:100])
		assert.Equalf(t, tail, head, "分块 %d 与 %d 之间重叠不一致", i, i+1)
	}
}

func TestSplitTextParagraphBoundary(t *testing.T) {
	text := strings.Repeat("a", 500) + "\n\n" + strings.Repeat("b", 800)
	chunks := SplitText(text, 1000, 0)
	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0], "\n\n"), "第一块应当在段落边界结束")
	assert.True(t, strings.HasPrefix(chunks[1], "b"))
}

func TestSplitTextSentenceBoundary(t *testing.T) {
	text := strings.Repeat("x", 990) + "。" + strings.Repeat("y", 200)
	chunks := SplitText(text, 1000, 0)
	require.Greater(t, len(chunks), 1)
	assert.True(t, strings.HasSuffix(chunks[0], "。"), "第一块应当在句子边界结束")
}

func TestSplitTextInvalidOverlapFallsBack(t *testing.T) {
	// overlap >= maxSize 时退化为无重叠切分，必须正常结束
	text := strings.Repeat("a", 300)
	chunks := SplitText(text, 100, 100)
	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 100)
	}
}

func TestSplitTextMultibyteRunes(t *testing.T) {
	text := strings.Repeat("法", 250)
	chunks := SplitText(text, 100, 10)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 100)
	}
	// 拼回去必须覆盖原文（重叠部分重复不影响覆盖性）
	assert.True(t, strings.HasPrefix(chunks[0], "法"))
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "法"))
}
