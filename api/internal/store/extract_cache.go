package store

import (
	"errors"
	"sync"
	"time"

	"gwa-helper/api/internal/course"
	"gwa-helper/api/internal/extraction"
)

var ErrNotFound = errors.New("store: not found")

// ExtractRow: закэшированный результат извлечения.
type ExtractRow struct {
	CreatedAt time.Time
	ImageHash string
	Engine    string
	Model     string
	Result    extraction.Result
}

type extractKey struct {
	hash, engine, model string
}

// ExtractCache держит в памяти уверенные успешные извлечения по ключу
// (image_hash + engine + model). Списки курсов здесь не хранятся.
type ExtractCache struct {
	mu     sync.Mutex
	rows   map[extractKey]ExtractRow
	maxAge time.Duration
	limit  int
	now    func() time.Time
}

// NewExtractCache: maxAge <= 0 disables expiry, limit <= 0 means 1024 rows.
func NewExtractCache(maxAge time.Duration, limit int) *ExtractCache {
	if limit <= 0 {
		limit = 1024
	}
	return &ExtractCache{
		rows:   make(map[extractKey]ExtractRow),
		maxAge: maxAge,
		limit:  limit,
		now:    time.Now,
	}
}

// Cacheable reports whether a result may be reused: only certain successes with courses.
func Cacheable(r extraction.Result) bool {
	return r.Success && !r.Uncertain && r.Error == extraction.ErrorNone && len(r.Courses) > 0
}

// FindByHash достаёт запись по ключу; просроченная запись удаляется и даёт ErrNotFound.
func (c *ExtractCache) FindByHash(imageHash, engine, model string) (*ExtractRow, error) {
	k := extractKey{imageHash, engine, model}
	c.mu.Lock()
	defer c.mu.Unlock()
	row, ok := c.rows[k]
	if !ok {
		return nil, ErrNotFound
	}
	if c.maxAge > 0 && c.now().Sub(row.CreatedAt) > c.maxAge {
		delete(c.rows, k)
		return nil, ErrNotFound
	}
	out := row
	out.Result = cloneResult(row.Result)
	return &out, nil
}

// Upsert сохраняет результат, если он кэшируемый; при переполнении вытесняет самую старую запись.
func (c *ExtractCache) Upsert(imageHash, engine, model string, r extraction.Result) bool {
	if !Cacheable(r) {
		return false
	}
	k := extractKey{imageHash, engine, model}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.rows[k]; !exists && len(c.rows) >= c.limit {
		c.evictOldestLocked()
	}
	c.rows[k] = ExtractRow{
		CreatedAt: c.now(),
		ImageHash: imageHash,
		Engine:    engine,
		Model:     model,
		Result:    cloneResult(r),
	}
	return true
}

func (c *ExtractCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

// Prune удаляет просроченные записи и возвращает их число.
func (c *ExtractCache) Prune() int {
	if c.maxAge <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, r := range c.rows {
		if c.now().Sub(r.CreatedAt) > c.maxAge {
			delete(c.rows, k)
			n++
		}
	}
	return n
}

func (c *ExtractCache) evictOldestLocked() {
	var (
		oldest extractKey
		ts     time.Time
		found  bool
	)
	for k, r := range c.rows {
		if !found || r.CreatedAt.Before(ts) {
			oldest, ts, found = k, r.CreatedAt, true
		}
	}
	if found {
		delete(c.rows, oldest)
	}
}

// cloneResult копирует курсы вместе с оценками, чтобы вызывающий не менял кэш.
func cloneResult(r extraction.Result) extraction.Result {
	out := r
	out.Courses = make([]course.CourseData, len(r.Courses))
	for i, c := range r.Courses {
		out.Courses[i] = c
		if c.Grade != nil {
			out.Courses[i].Grade = course.GradeOf(*c.Grade)
		}
	}
	return out
}
