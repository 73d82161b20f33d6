package llm

import (
	"fmt"
	"strings"
)

// BuildPrompt 要求模型只返回 JSON
func BuildPrompt(p Prompt) string {
	category := p.Category
	if category == "" {
		category = "technology"
	}
	keywords := "none"
	if len(p.Keywords) > 0 {
		keywords = strings.Join(p.Keywords, ", ")
	}

	return fmt.Sprintf(`You are a senior news editor. Write an original, well-researched article about "%s".

Category: %s
Related keywords: %s

Requirements:
1. Return strict JSON only, with no markdown code fences and no explanation.
2. JSON shape: {"title": "...", "excerpt": "...", "content": "...", "tags": ["..."], "seo": {"metaTitle": "...", "metaDescription": "...", "keywords": ["..."]}}
3. "content" is markdown with section headings, 800 to 1200 words.
4. "excerpt" is one or two sentences, at most 200 characters.
5. Provide 3 to 6 lower-case tags.
6. Do not invent quotes or statistics.`, strings.TrimSpace(p.Topic), category, keywords)
}
