package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PNikhileswar/neurapress/internal/invalidation"
	"github.com/PNikhileswar/neurapress/internal/repo"
	"github.com/PNikhileswar/neurapress/internal/statscache"
	"github.com/PNikhileswar/neurapress/pkg/db/objects"

	"github.com/gin-gonic/gin"
)

const maxSlugAttempts = 20

// ArticleInput 管理端创建文章的请求体
type ArticleInput struct {
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Excerpt     string          `json:"excerpt"`
	Content     string          `json:"content"`
	Category    string          `json:"category"`
	Tags        []string        `json:"tags"`
	Featured    bool            `json:"featured"`
	Images      []objects.Media `json:"images"`
	Videos      []objects.Media `json:"videos"`
	SEO         objects.SEO     `json:"seo"`
	PublishedAt *time.Time      `json:"publishedAt"`
}

func (s *Server) listArticles(c *gin.Context) {
	opts := repo.ListOptions{}
	if cat := strings.ToLower(strings.TrimSpace(c.Query("category"))); cat != "" {
		if !objects.ValidCategory(cat) {
			badRequest(c, "unknown category", nil)
			return
		}
		opts.Category = cat
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "featured must be a boolean", err)
			return
		}
		opts.Featured = &featured
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 0 {
			badRequest(c, "limit must be a non-negative integer", err)
			return
		}
		opts.Limit = limit
	}

	list, err := s.deps.Articles.List(c.Request.Context(), opts)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
}

func (s *Server) getArticle(c *gin.Context) {
	a, err := s.deps.Articles.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": a})
}

func (s *Server) createArticle(c *gin.Context) {
	var in ArticleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid json body", err)
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || strings.TrimSpace(in.Content) == "" {
		badRequest(c, "title and content are required", nil)
		return
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if category == "" {
		category = objects.DefaultCategory
	}
	if !objects.ValidCategory(category) {
		badRequest(c, "unknown category", nil)
		return
	}

	base := objects.Slugify(in.Slug)
	if base == "" {
		base = objects.Slugify(in.Title)
	}
	if base == "" {
		badRequest(c, "title yields empty slug", nil)
		return
	}

	ctx := c.Request.Context()
	slug, err := s.deps.Articles.UniqueSlug(ctx, base, maxSlugAttempts)
	if err != nil {
		fail(c, err)
		return
	}

	a := &objects.Article{
		Title:       in.Title,
		Slug:        slug,
		Excerpt:     in.Excerpt,
		Content:     in.Content,
		Category:    category,
		Tags:        in.Tags,
		ReadingTime: objects.ReadingTimeFor(in.Content),
		Featured:    in.Featured,
		Images:      in.Images,
		Videos:      in.Videos,
		SEO:         in.SEO,
	}
	if in.PublishedAt != nil {
		a.PublishedAt = in.PublishedAt.UTC()
	}
	if err := s.deps.Articles.Create(ctx, a); err != nil {
		fail(c, err)
		return
	}

	invalidation.Notify(ctx, s.deps.Notifier, invalidation.NewEvent(statscache.EventCreated, a.Category))
	c.JSON(http.StatusCreated, gin.H{"data": a})
}

func (s *Server) updateArticle(c *gin.Context) {
	var u repo.ArticleUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		badRequest(c, "invalid json body", err)
		return
	}
	if u.Empty() {
		badRequest(c, "no fields to update", nil)
		return
	}
	if u.Category != nil {
		cat := strings.ToLower(strings.TrimSpace(*u.Category))
		if !objects.ValidCategory(cat) {
			badRequest(c, "unknown category", nil)
			return
		}
		u.Category = &cat
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		badRequest(c, "title cannot be empty", nil)
		return
	}

	ctx := c.Request.Context()
	before, after, err := s.deps.Articles.Update(ctx, c.Param("slug"), u)
	if err != nil {
		fail(c, err)
		return
	}

	invalidation.Notify(ctx, s.deps.Notifier, invalidation.NewEvent(statscache.EventUpdated, before.Category))
	if after.Category != before.Category {
		invalidation.Notify(ctx, s.deps.Notifier, invalidation.NewEvent(statscache.EventUpdated, after.Category))
	}
	c.JSON(http.StatusOK, gin.H{"data": after})
}

func (s *Server) deleteArticle(c *gin.Context) {
	ctx := c.Request.Context()
	a, err := s.deps.Articles.Delete(ctx, c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	invalidation.Notify(ctx, s.deps.Notifier, invalidation.NewEvent(statscache.EventDeleted, a.Category))
	c.JSON(http.StatusOK, gin.H{"message": "deleted", "slug": a.Slug})
}
