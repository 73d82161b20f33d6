package objects

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ArticleCollection 文章集合名
const ArticleCollection = "articles"

// WordsPerMinute 阅读时长估算使用的阅读速度
const WordsPerMinute = 200

// Article 对应 MongoDB 集合 articles
// Slug 是自然主键，查询/更新/删除都按 slug 进行，集合上有唯一索引
type Article struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Slug        string             `bson:"slug" json:"slug"`
	Excerpt     string             `bson:"excerpt" json:"excerpt"`
	Content     string             `bson:"content" json:"content"`
	Category    string             `bson:"category" json:"category"`
	Tags        []string           `bson:"tags" json:"tags"`
	ReadingTime int                `bson:"readingTime" json:"readingTime"` // 分钟
	PublishedAt time.Time          `bson:"publishedAt" json:"publishedAt"`
	Featured    bool               `bson:"featured" json:"featured"`
	Images      []Media            `bson:"images,omitempty" json:"images,omitempty"`
	Videos      []Media            `bson:"videos,omitempty" json:"videos,omitempty"`
	SEO         SEO                `bson:"seo" json:"seo"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Media 内嵌的图片/视频元数据，带来源署名和相关度
type Media struct {
	URL         string  `bson:"url" json:"url"`
	Title       string  `bson:"title,omitempty" json:"title,omitempty"`
	Alt         string  `bson:"alt,omitempty" json:"alt,omitempty"`
	Source      string  `bson:"source,omitempty" json:"source,omitempty"`
	Attribution string  `bson:"attribution,omitempty" json:"attribution,omitempty"`
	Relevance   float64 `bson:"relevance,omitempty" json:"relevance,omitempty"`
}

// SEO 元数据
type SEO struct {
	MetaTitle       string   `bson:"metaTitle,omitempty" json:"metaTitle,omitempty"`
	MetaDescription string   `bson:"metaDescription,omitempty" json:"metaDescription,omitempty"`
	Keywords        []string `bson:"keywords,omitempty" json:"keywords,omitempty"`
}

// Categories 允许的文章分类
var Categories = []string{
	"technology",
	"business",
	"science",
	"health",
	"entertainment",
	"sports",
	"politics",
	"lifestyle",
	"environment",
	"world",
}

// DefaultCategory 未指定分类时使用
const DefaultCategory = "technology"

// ValidCategory 判断分类是否合法 (大小写不敏感)
func ValidCategory(c string) bool {
	c = strings.ToLower(strings.TrimSpace(c))
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// ReadingTimeFor 按字数估算阅读分钟数，至少 1 分钟
func ReadingTimeFor(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// maxSlugBytes slug 最大字节数，按完整字符截断
const maxSlugBytes = 80

// Slugify 由标题生成 URL slug：小写、非字母数字替换为 "-"、去掉首尾连字符
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if b.Len()+utf8.RuneLen(r) > maxSlugBytes {
				break
			}
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			if b.Len()+1 > maxSlugBytes {
				break
			}
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
