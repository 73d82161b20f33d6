package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/PNikhileswar/neurapress/internal/invalidation"
	"github.com/PNikhileswar/neurapress/internal/statscache"
	"github.com/PNikhileswar/neurapress/internal/topic"
	"github.com/PNikhileswar/neurapress/pkg/db/objects"
	"github.com/PNikhileswar/neurapress/pkg/llm"
	"github.com/PNikhileswar/neurapress/pkg/sensitive"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMatcher struct {
	res    topic.Result
	err    error
	calls  int
	cutoff int
}

func (f *fakeMatcher) Check(_ context.Context, _ string, cutoff int) (topic.Result, error) {
	f.calls++
	f.cutoff = cutoff
	if cutoff < 0 {
		return topic.Result{}, topic.ErrInvalidCutoff
	}
	return f.res, f.err
}

type fakeWriter struct {
	draft llm.Draft
	err   error
	calls int
}

func (f *fakeWriter) Write(context.Context, llm.Prompt) (llm.Draft, error) {
	f.calls++
	return f.draft, f.err
}

type memStore struct {
	mu      sync.Mutex
	slugs   map[string]bool
	created []*objects.Article
	err     error
}

func newMemStore(taken ...string) *memStore {
	s := &memStore{slugs: map[string]bool{}}
	for _, t := range taken {
		s.slugs[t] = true
	}
	return s
}

func (s *memStore) UniqueSlug(_ context.Context, base string, max int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slug := base
	for i := 2; i <= max+1; i++ {
		if !s.slugs[slug] {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return "", errors.New("exhausted")
}

func (s *memStore) Create(_ context.Context, a *objects.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.slugs[a.Slug] = true
	s.created = append(s.created, a)
	return nil
}

type recordingNotifier struct {
	events []statscache.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, e statscache.Event) error {
	n.events = append(n.events, e)
	return n.err
}

type memArchive struct {
	files map[string]string
	err   error
}

func (m *memArchive) Save(_ context.Context, folder, filename string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	b, _ := io.ReadAll(r)
	m.files[folder+"/"+filename] = string(b)
	return "/" + folder + "/" + filename, nil
}
func (m *memArchive) Delete(context.Context, string, string) error { return nil }
func (m *memArchive) URL(p string) string { return "/" + p }

func draft() llm.Draft {
	d := llm.Draft{
		Title:   "Quantum Computing Goes Mainstream",
		Excerpt: "Short.",
		Content: "## Intro\nQuantum computers are here.",
		Tags:    []string{"Quantum", "quantum", " computing "},
	}
	return d
}

func candidate() topic.Candidate {
	return topic.Candidate{Title: "Quantum Computing Breakthrough", Category: "Science", Keywords: []string{"qubits"}}
}

func TestGenerate_Created(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	archive := &memArchive{files: map[string]string{}}
	g := New(Deps{
		Matcher:  &fakeMatcher{res: topic.Result{Reason: topic.ReasonNoMatch}},
		Writer:   &fakeWriter{draft: draft()},
		Store:    store,
		Archive:  archive,
		Notifier: notifier,
	})

	out, err := g.Generate(context.Background(), Request{Candidate: candidate()})
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, out.Status)
	require.NotNil(t, out.Article)
	assert.Equal(t, "quantum-computing-goes-mainstream", out.Article.Slug)
	assert.Equal(t, "science", out.Article.Category)
	assert.Equal(t, []string{"quantum", "computing"}, out.Article.Tags)
	assert.Equal(t, 1, out.Article.ReadingTime)
	assert.Equal(t, "Quantum Computing Goes Mainstream", out.Article.SEO.MetaTitle)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, statscache.EventCreated, notifier.events[0].Type)
	assert.Equal(t, "science", notifier.events[0].Category)
	assert.Contains(t, archive.files, "articles/quantum-computing-goes-mainstream.md")
}

func TestGenerate_SkippedOnMatch(t *testing.T) {
	blocking := &topic.BlockingArticle{Title: "Quantum Computing Today", Slug: "quantum-computing-today"}
	writer := &fakeWriter{draft: draft()}
	store := newMemStore()
	g := New(Deps{
		Matcher: &fakeMatcher{res: topic.Result{Matched: true, Reason: topic.ReasonMatched, Article: blocking}},
		Writer:  writer,
		Store:   store,
	})

	out, err := g.Generate(context.Background(), Request{Candidate: candidate()})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Equal(t, blocking, out.BlockedBy)
	assert.Zero(t, writer.calls)
	assert.Empty(t, store.created)
}

func TestGenerate_ForceBypassesMatcher(t *testing.T) {
	m := &fakeMatcher{res: topic.Result{Matched: true, Article: &topic.BlockingArticle{}}}
	g := New(Deps{Matcher: m, Writer: &fakeWriter{draft: draft()}, Store: newMemStore()})

	out, err := g.Generate(context.Background(), Request{Candidate: candidate(), Force: true})
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, out.Status)
	assert.Zero(t, m.calls)
}

func TestGenerate_ProceedsWhenMatcherFails(t *testing.T) {
	g := New(Deps{
		Matcher: &fakeMatcher{err: errors.New("mongo timeout")},
		Writer:  &fakeWriter{draft: draft()},
		Store:   newMemStore(),
	})

	out, err := g.Generate(context.Background(), Request{Candidate: candidate()})
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, out.Status)
}

func TestGenerate_NotifyFailureDoesNotFailCreate(t *testing.T) {
	store := newMemStore()
	g := New(Deps{
		Matcher:  &fakeMatcher{},
		Writer:   &fakeWriter{draft: draft()},
		Store:    store,
		Notifier: &recordingNotifier{err: errors.New("redis down")},
		Archive:  &memArchive{err: errors.New("disk full")},
	})

	out, err := g.Generate(context.Background(), Request{Candidate: candidate()})
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, out.Status)
	assert.Len(t, store.created, 1)
}

func TestGenerate_SlugCollision(t *testing.T) {
	store := newMemStore("quantum-computing-goes-mainstream", "quantum-computing-goes-mainstream-2")
	g := New(Deps{Matcher: &fakeMatcher{}, Writer: &fakeWriter{draft: draft()}, Store: store})

	out, err := g.Generate(context.Background(), Request{Candidate: candidate()})
	require.NoError(t, err)
	assert.Equal(t, "quantum-computing-goes-mainstream-3", out.Article.Slug)
}

func TestGenerate_InvalidCandidate(t *testing.T) {
	g := New(Deps{Matcher: &fakeMatcher{}, Writer: &fakeWriter{draft: draft()}, Store: newMemStore()})
	ctx := context.Background()

	_, err := g.Generate(ctx, Request{Candidate: topic.Candidate{Title: "  "}})
	assert.ErrorIs(t, err, ErrInvalidCandidate)

	_, err = g.Generate(ctx, Request{Candidate: topic.Candidate{Title: "Gardening Tips For Winter", Category: "gardening"}})
	assert.ErrorIs(t, err, ErrInvalidCandidate)

	negative := -1
	_, err = g.Generate(ctx, Request{Candidate: candidate(), CutoffDays: &negative})
	assert.ErrorIs(t, err, ErrInvalidCandidate)
}

func TestGenerate_DefaultCategoryAndCutoff(t *testing.T) {
	m := &fakeMatcher{}
	g := New(Deps{Matcher: m, Writer: &fakeWriter{draft: draft()}, Store: newMemStore()}, WithCutoffDays(3))

	out, err := g.Generate(context.Background(), Request{Candidate: topic.Candidate{Title: "Quantum Computing Breakthrough"}})
	require.NoError(t, err)
	assert.Equal(t, objects.DefaultCategory, out.Article.Category)
	assert.Equal(t, 3, m.cutoff)

	zero := 0
	_, err = g.Generate(context.Background(), Request{Candidate: candidate(), CutoffDays: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, m.cutoff)
}

func TestGenerate_WriterError(t *testing.T) {
	store := newMemStore()
	g := New(Deps{Matcher: &fakeMatcher{}, Writer: &fakeWriter{err: llm.ErrNoJSON}, Store: store})

	_, err := g.Generate(context.Background(), Request{Candidate: candidate()})
	assert.ErrorIs(t, err, llm.ErrNoJSON)
	assert.Empty(t, store.created)
}

func TestGenerate_StoreError(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("write conflict")
	notifier := &recordingNotifier{}
	g := New(Deps{Matcher: &fakeMatcher{}, Writer: &fakeWriter{draft: draft()}, Store: store, Notifier: notifier})

	_, err := g.Generate(context.Background(), Request{Candidate: candidate()})
	assert.Error(t, err)
	assert.Empty(t, notifier.events)
}

func TestGenerate_BlockedWord(t *testing.T) {
	filter, err := sensitive.NewWord("", "casino")
	require.NoError(t, err)
	writer := &fakeWriter{draft: draft()}
	g := New(Deps{Matcher: &fakeMatcher{}, Writer: writer, Store: newMemStore(), Filter: filter})

	out, err := g.Generate(context.Background(), Request{Candidate: topic.Candidate{Title: "Best Casino Apps Reviewed"}})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Equal(t, ReasonBlockedWord, out.Reason)
	assert.Zero(t, writer.calls)
}

func TestGenerate_LockHeldElsewhere(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	locker := NewRedisLocker(rdb)

	release, ok, err := locker.Acquire(context.Background(), topic.LockKey(candidate().Title), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	writer := &fakeWriter{draft: draft()}
	g := New(Deps{Matcher: &fakeMatcher{}, Writer: writer, Store: newMemStore(), Locker: locker})

	out, err := g.Generate(context.Background(), Request{Candidate: candidate()})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Equal(t, ReasonInProgress, out.Reason)
	assert.Zero(t, writer.calls)

	require.NoError(t, release(context.Background()))
	out, err = g.Generate(context.Background(), Request{Candidate: candidate()})
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, out.Status)
	assert.False(t, mr.Exists(lockPrefix+"quantum+computing"), "lock released after generation")
}

func TestGenerate_LockErrorContinues(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	g := New(Deps{Matcher: &fakeMatcher{}, Writer: &fakeWriter{draft: draft()}, Store: newMemStore(), Locker: NewRedisLocker(rdb)})
	out, err := g.Generate(context.Background(), Request{Candidate: candidate()})
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, out.Status)
}

func TestRedisLocker_ReleaseOnlyOwnLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	locker := NewRedisLocker(rdb)
	ctx := context.Background()

	release, ok, err := locker.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// 锁过期后被其他人拿到，旧持有者释放不能删掉新锁
	mr.FastForward(2 * time.Minute)
	_, ok, err = locker.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, release(ctx))
	assert.True(t, mr.Exists(lockPrefix+"k"))
}

// storeMatcher 以 memStore 中已创建的文章作为查重依据；afterFirst 在第一次查询返回前执行
type storeMatcher struct {
	store      *memStore
	afterFirst func()
	calls      int
}

func (m *storeMatcher) Check(context.Context, string, int) (topic.Result, error) {
	m.calls++
	m.store.mu.Lock()
	var res topic.Result
	if len(m.store.created) > 0 {
		a := m.store.created[0]
		res = topic.Result{Matched: true, Reason: topic.ReasonMatched, Article: &topic.BlockingArticle{Title: a.Title, Slug: a.Slug}}
	} else {
		res = topic.Result{Reason: topic.ReasonNoMatch}
	}
	m.store.mu.Unlock()

	if hook := m.afterFirst; hook != nil {
		m.afterFirst = nil
		hook()
	}
	return res, nil
}

func TestGenerate_RechecksAfterAcquiringLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := newMemStore()
	matcher := &storeMatcher{store: store}
	g := New(Deps{Matcher: matcher, Writer: &fakeWriter{draft: draft()}, Store: store, Locker: NewRedisLocker(rdb)})
	ctx := context.Background()

	// B 看到 "no match" 之后、拿锁之前，A 完成了生成并释放锁
	var first Outcome
	matcher.afterFirst = func() {
		out, err := g.Generate(ctx, Request{Candidate: candidate()})
		require.NoError(t, err)
		first = out
	}

	second, err := g.Generate(ctx, Request{Candidate: candidate()})
	require.NoError(t, err)

	assert.Equal(t, StatusCreated, first.Status)
	assert.Equal(t, StatusSkipped, second.Status)
	require.NotNil(t, second.BlockedBy)
	assert.Equal(t, first.Article.Slug, second.BlockedBy.Slug)
	assert.Len(t, store.created, 1)
	assert.False(t, mr.Exists(lockPrefix+"quantum+computing"))
}

var _ invalidation.Notifier = (*recordingNotifier)(nil)
