package querygen

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/irbench/internal/domain/irModel"
	"github.com/akolanti/irbench/internal/irdataset"
)

const systemPrompt = "你是一名K12教育领域的信息检索评测数据标注专家。你只输出JSON，不输出任何解释。"

const promptTemplate = `下面是一页教学设计文档，按段落编号给出：

%s

请站在教师备课检索资料的角度，基于以上内容生成%d个中文检索问题。要求：
1. 每个问题都能仅凭其中的一个或多个段落得到回答；
2. 问题不要照抄原文，使用自然的提问方式；
3. 在 recallable_paragraphs 中列出能回答该问题的段落编号，格式为 "paragraph_N"。

只输出如下格式的JSON：
{"queries": [{"query": "问题", "recallable_paragraphs": ["paragraph_0"]}]}`

// BuildPrompt renders the user prompt for one merged page.
func BuildPrompt(doc irModel.MergedDocument, queriesPerDoc int) string {
	return fmt.Sprintf(promptTemplate, strings.Join(doc.Paragraphs, "\n"), queriesPerDoc)
}

var errNoQueries = errors.New("response holds no usable queries")

// ParseResponse decodes the model output, tolerating markdown code fences.
// Queries with empty text are dropped and paragraph references that do not
// parse are removed.
func ParseResponse(raw string) (irModel.GeneratedContent, error) {
	var content irModel.GeneratedContent
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		body = body[start : end+1]
	}

	if err := json.Unmarshal([]byte(body), &content); err != nil {
		return content, fmt.Errorf("decode llm output: %w", err)
	}

	kept := content.Queries[:0]
	for _, q := range content.Queries {
		q.Query = strings.TrimSpace(q.Query)
		if q.Query == "" {
			continue
		}
		refs := q.RecallableParagraphs[:0]
		for _, ref := range q.RecallableParagraphs {
			if _, ok := irdataset.ParagraphNumber(ref); ok {
				refs = append(refs, strings.TrimSpace(ref))
			}
		}
		q.RecallableParagraphs = refs
		kept = append(kept, q)
	}
	if len(kept) == 0 {
		return content, errNoQueries
	}
	content.Queries = kept
	return content, nil
}
