package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/PNikhileswar/neurapress/pkg/db/objects"
)

// ArticleFolder 文章归档目录
const ArticleFolder = "articles"

// ArticleFilename 按 slug 命名，同一篇文章重复归档会覆盖
func ArticleFilename(slug string) string {
	return slug + ".md"
}

// ArticleMarkdown 带 front matter 的 markdown 正文
func ArticleMarkdown(a *objects.Article) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", a.Title)
	fmt.Fprintf(&b, "slug: %s\n", a.Slug)
	fmt.Fprintf(&b, "category: %s\n", a.Category)
	if len(a.Tags) > 0 {
		fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(a.Tags, ", "))
	}
	fmt.Fprintf(&b, "date: %s\n", a.PublishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "readingTime: %d\n", a.ReadingTime)
	b.WriteString("---\n\n")
	b.WriteString(a.Content)
	if !strings.HasSuffix(a.Content, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
