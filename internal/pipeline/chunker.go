// Package pipeline 定义了法规文档入库的核心流程。
package pipeline

// 切分点的优先级：段落边界 > 行边界 > 句子边界 > 词边界 > 硬切。
var sentenceEnders = map[rune]bool{
	'。': true, '！': true, '？': true,
	'.': true, '!': true, '?': true,
}

// SplitText 将长文本切分为带重叠的分块。
// 每个分块不超过 maxSize 个 rune，相邻分块共享前一块末尾最多 overlap 个 rune。
// 切分点尽量落在自然边界上。空文本返回 nil。
func SplitText(text string, maxSize int, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if maxSize <= 0 {
		maxSize = 1000
	}
	// overlap 不合法时退化为无重叠切分，避免窗口停滞
	if overlap < 0 || overlap >= maxSize {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		cut := findSplitPoint(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))

		next := cut - overlap
		if next <= start {
			// 重叠吃掉了全部进展，放弃本轮重叠保证前进
			next = cut
		}
		start = next
	}
	return chunks
}

// findSplitPoint 在 [start, end) 窗口内从后向前寻找最合适的切分点。
// 返回值是下一个分块的切分位置，保证 start < 返回值 <= end。
func findSplitPoint(runes []rune, start, end int) int {
	// 1. 段落边界：连续两个换行
	for i := end - 1; i > start; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	// 2. 行边界
	for i := end - 1; i > start; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	// 3. 句子边界
	for i := end - 1; i > start; i-- {
		if sentenceEnders[runes[i]] {
			return i + 1
		}
	}
	// 4. 词边界
	for i := end - 1; i > start; i-- {
		if runes[i] == ' ' {
			return i + 1
		}
	}
	// 5. 没有任何自然边界，硬切
	return end
}
