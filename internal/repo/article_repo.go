package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/PNikhileswar/neurapress/internal/topic"
	"github.com/PNikhileswar/neurapress/pkg/db/objects"
	"github.com/PNikhileswar/neurapress/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("repo: article not found")
	ErrSlugTaken = errors.New("repo: slug already taken")
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ArticleRepo 文章仓储，slug 是自然主键
type ArticleRepo struct {
	coll *mongo.Collection
	now  utils.Clock
}

func NewArticleRepo(database *mongo.Database) *ArticleRepo {
	return NewArticleRepoWithCollection(database.Collection(objects.ArticleCollection))
}

func NewArticleRepoWithCollection(coll *mongo.Collection) *ArticleRepo {
	return &ArticleRepo{coll: coll, now: utils.Now}
}

// EnsureIndexes slug 唯一索引 + 发布时间、分类索引
func (r *ArticleRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "publishedAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("ensure article indexes: %w", err)
	}
	return nil
}

// Create 写入新文章，slug 冲突返回 ErrSlugTaken
func (r *ArticleRepo) Create(ctx context.Context, a *objects.Article) error {
	now := r.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.PublishedAt.IsZero() {
		a.PublishedAt = now
	}
	a.UpdatedAt = now

	res, err := r.coll.InsertOne(ctx, a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("insert article %q: %w", a.Slug, err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid
	}
	return nil
}

func (r *ArticleRepo) GetBySlug(ctx context.Context, slug string) (*objects.Article, error) {
	var a objects.Article
	err := r.coll.FindOne(ctx, bson.M{"slug": slug}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article %q: %w", slug, err)
	}
	return &a, nil
}

// ListOptions 列表过滤条件，零值表示不过滤
type ListOptions struct {
	Category string
	Featured *bool
	Limit    int64
}

func (o ListOptions) filter() bson.M {
	f := bson.M{}
	if o.Category != "" {
		f["category"] = o.Category
	}
	if o.Featured != nil {
		f["featured"] = *o.Featured
	}
	return f
}

func (o ListOptions) limit() int64 {
	switch {
	case o.Limit <= 0:
		return DefaultListLimit
	case o.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return o.Limit
	}
}

// List 按发布时间倒序
func (r *ArticleRepo) List(ctx context.Context, opts ListOptions) ([]*objects.Article, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "publishedAt", Value: -1}}).
		SetLimit(opts.limit())
	cur, err := r.coll.Find(ctx, opts.filter(), findOpts)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer cur.Close(ctx)

	list := make([]*objects.Article, 0)
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}
	return list, nil
}

// ArticleUpdate 管理端编辑，nil 字段不修改
type ArticleUpdate struct {
	Title    *string      `json:"title"`
	Excerpt  *string      `json:"excerpt"`
	Content  *string      `json:"content"`
	Category *string      `json:"category"`
	Tags     []string     `json:"tags"`
	Featured *bool        `json:"featured"`
	SEO      *objects.SEO `json:"seo"`
}

func (u ArticleUpdate) Empty() bool {
	return u.Title == nil && u.Excerpt == nil && u.Content == nil && u.Category == nil &&
		u.Tags == nil && u.Featured == nil && u.SEO == nil
}

// Apply 把修改应用到内存中的文章，与 setDoc 保持一致
func (u ArticleUpdate) Apply(a *objects.Article) {
	if u.Title != nil {
		a.Title = *u.Title
	}
	if u.Excerpt != nil {
		a.Excerpt = *u.Excerpt
	}
	if u.Content != nil {
		a.Content = *u.Content
		a.ReadingTime = objects.ReadingTimeFor(*u.Content)
	}
	if u.Category != nil {
		a.Category = *u.Category
	}
	if u.Tags != nil {
		a.Tags = u.Tags
	}
	if u.Featured != nil {
		a.Featured = *u.Featured
	}
	if u.SEO != nil {
		a.SEO = *u.SEO
	}
}

func (u ArticleUpdate) setDoc(now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Excerpt != nil {
		set["excerpt"] = *u.Excerpt
	}
	if u.Content != nil {
		set["content"] = *u.Content
		set["readingTime"] = objects.ReadingTimeFor(*u.Content)
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Tags != nil {
		set["tags"] = u.Tags
	}
	if u.Featured != nil {
		set["featured"] = *u.Featured
	}
	if u.SEO != nil {
		set["seo"] = *u.SEO
	}
	return set
}

// Update 返回修改前后的文章，调用方据此同时失效新旧分类
func (r *ArticleRepo) Update(ctx context.Context, slug string, u ArticleUpdate) (before, after *objects.Article, err error) {
	now := r.now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var prev objects.Article
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"slug": slug}, bson.M{"$set": u.setDoc(now)}, opts).Decode(&prev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("update article %q: %w", slug, err)
	}

	next := prev
	u.Apply(&next)
	next.UpdatedAt = now
	return &prev, &next, nil
}

// Delete 返回被删除的文章
func (r *ArticleRepo) Delete(ctx context.Context, slug string) (*objects.Article, error) {
	var a objects.Article
	err := r.coll.FindOneAndDelete(ctx, bson.M{"slug": slug}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete article %q: %w", slug, err)
	}
	return &a, nil
}

func (r *ArticleRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"slug": slug}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check slug %q: %w", slug, err)
	}
	return n > 0, nil
}

// UniqueSlug 在 base 后追加 -2、-3... 直到不冲突
func (r *ArticleRepo) UniqueSlug(ctx context.Context, base string, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 20
	}
	slug := base
	for i := 2; i <= maxAttempts+1; i++ {
		exists, err := r.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(i)
	}
	return "", fmt.Errorf("%w: no free slug for %q after %d attempts", ErrSlugTaken, base, maxAttempts)
}

// SimilarFilter 每个词都须以字面子串 (大小写不敏感) 出现在标题或任一标签中，且在时间窗口内
func SimilarFilter(q topic.SimilarQuery) bson.M {
	and := make(bson.A, 0, len(q.Words)+1)
	for _, w := range q.Words {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(w), Options: "i"}
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"title": pattern},
			bson.M{"tags": pattern},
		}})
	}
	and = append(and, bson.M{"publishedAt": bson.M{"$gte": q.Since}})
	return bson.M{"$and": and}
}

// FindSimilar 实现 topic.SimilarFinder，返回最近发布的命中文章
func (r *ArticleRepo) FindSimilar(ctx context.Context, q topic.SimilarQuery) (*objects.Article, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "publishedAt", Value: -1}}).
		SetProjection(bson.M{"title": 1, "slug": 1, "publishedAt": 1, "tags": 1, "category": 1})

	var a objects.Article
	err := r.coll.FindOne(ctx, SimilarFilter(q), opts).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find similar articles: %w", err)
	}
	return &a, nil
}
