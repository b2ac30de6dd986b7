// Package client Notion API 抓取协调层
//
// 负责把一个块和它的所有后代从分页接口完整取回：
//   - 同一个父块的页按 cursor 顺序串行请求
//   - 不同父块的子块列表并发抓取，受全局并发上限和速率限制约束
//   - singleflight 去重：同一资源键只允许一个在途请求，
//     并发等待者共享同一次结果（包括同一串重试）
//   - 暂时性失败（限流、网络、服务端错误）按指数退避重试，
//     永久性失败（404、无权限、响应损坏）立即取消整棵树的抓取
//
// 去重缓存随一次 FetchTree 调用创建和丢弃，不跨调用保留。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/riverfjs/notionify-go/internal/types"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	notionVersion  = "2022-06-28"
	pageSize       = 100
)

// Options 协调层配置，零值字段使用默认值
type Options struct {
	BaseURL           string
	HTTPClient        *http.Client
	Concurrency       int64         // 并发请求上限，默认 8
	RequestsPerSecond float64       // 速率上限，默认 3
	MaxAttempts       int           // 含首次请求的尝试上限，默认 5
	BackoffBase       time.Duration // 首次退避时长，默认 500ms
	BackoffCap        time.Duration // 退避时长上限，默认 8s
	Logger            *log.Logger   // 重试日志，nil 时静默
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.BaseURL == "" {
		out.BaseURL = defaultBaseURL
	}
	if out.HTTPClient == nil {
		out.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if out.Concurrency <= 0 {
		out.Concurrency = 8
	}
	if out.RequestsPerSecond <= 0 {
		out.RequestsPerSecond = 3
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = 5
	}
	if out.BackoffBase <= 0 {
		out.BackoffBase = 500 * time.Millisecond
	}
	if out.BackoffCap <= 0 {
		out.BackoffCap = 8 * time.Second
	}
	return out
}

// Client Notion API 客户端
//
// 速率限制器和并发信号量挂在 Client 上，跨多次 FetchTree
// 共享同一配额；业务代码不允许绕过它们发请求。
type Client struct {
	opts      Options
	authToken string
	limiter   *rate.Limiter
	sem       *semaphore.Weighted
}

// New 创建客户端
func New(authToken string, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		opts:      opts,
		authToken: authToken,
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		sem:       semaphore.NewWeighted(opts.Concurrency),
	}
}

// FetchError 一次资源抓取的最终失败
type FetchError struct {
	Resource  string // 失败的资源键，如 children/<id>
	Attempts  int
	Transient bool
	Err       error
}

func (e *FetchError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("fetch %s: %v (after %d attempts)", e.Resource, e.Err, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient 报告错误是否属于可重试类别
func Transient(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Transient
	}
	var apiErr *types.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code.Transient()
	}
	return false
}

// FetchTree 抓取 rootID 及其全部后代，返回组装好的块树
func (c *Client) FetchTree(ctx context.Context, rootID types.NotionID) (*types.Block, error) {
	f := &fetcher{client: c, done: map[string]any{}}

	root, err := f.self(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if root.HasChildren {
		children, err := f.children(ctx, rootID)
		if err != nil {
			return nil, err
		}
		root.Children = children
	}
	return root, nil
}

// FetchChildren 只抓取 id 的后代（根块本身不可访问时使用）
func (c *Client) FetchChildren(ctx context.Context, id types.NotionID) ([]types.Block, error) {
	f := &fetcher{client: c, done: map[string]any{}}
	return f.children(ctx, id)
}

// FetchDatabasePages 查询数据库并返回它的所有页面，
// 每个页面的块树已组装完整
//
// 查询页按 cursor 串行，页面的块树并发抓取；多个页面引用
// 同一个子树时同样只请求一次。
func (c *Client) FetchDatabasePages(ctx context.Context, id types.NotionID) ([]types.Page, error) {
	f := &fetcher{client: c, done: map[string]any{}}
	return f.databasePages(ctx, id)
}

// fetcher 一次抓取调用的去重状态
//
// flight 保证同键至多一个在途请求；done 把完成的结果记到
// 调用结束，同一个块被多个父分支引用时只发一次网络请求。
type fetcher struct {
	client *Client
	flight singleflight.Group

	mu   sync.Mutex
	done map[string]any
}

func (f *fetcher) load(key string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.done[key]
	return v, ok
}

func (f *fetcher) store(key string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done[key] = v
}

func (f *fetcher) self(ctx context.Context, id types.NotionID) (*types.Block, error) {
	key := "self/" + id.String()
	v, err, _ := f.flight.Do(key, func() (any, error) {
		if cached, ok := f.load(key); ok {
			return cached, nil
		}
		var block types.Block
		if err := f.client.do(ctx, key, http.MethodGet, "/blocks/"+id.String(), nil, nil, &block); err != nil {
			return nil, err
		}
		f.store(key, &block)
		return &block, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Block), nil
}

// children 返回 id 的完整子块列表（所有页合并，深层后代已组装）
func (f *fetcher) children(ctx context.Context, id types.NotionID) ([]types.Block, error) {
	key := "children/" + id.String()
	v, err, _ := f.flight.Do(key, func() (any, error) {
		if cached, ok := f.load(key); ok {
			return cached, nil
		}
		blocks, err := f.fetchChildren(ctx, id)
		if err != nil {
			return nil, err
		}
		f.store(key, blocks)
		return blocks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.Block), nil
}

// fetchChildren 串行翻页 + 并发递归
//
// 每一页到达后立刻为有子块的结果块安排递归抓取，
// 下一页的请求和上一页子块的抓取同时进行。
// 任何永久失败会取消组内所有在途工作。
func (f *fetcher) fetchChildren(ctx context.Context, id types.NotionID) ([]types.Block, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var pages [][]types.Block
	cursor := ""
	for {
		list, err := f.childrenPage(gctx, id, cursor)
		if err != nil {
			cancel()
			_ = g.Wait()
			return nil, err
		}

		page := list.Results
		pages = append(pages, page)
		for i := range page {
			blk := &page[i]
			if !blk.HasChildren {
				continue
			}
			g.Go(func() error {
				children, err := f.children(gctx, blk.ID)
				if err != nil {
					return err
				}
				blk.Children = children
				return nil
			})
		}

		if !list.HasMore || list.NextCursor == nil {
			break
		}
		cursor = *list.NextCursor
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range pages {
		total += len(p)
	}
	out := make([]types.Block, 0, total)
	for _, p := range pages {
		out = append(out, p...)
	}
	return out, nil
}

func (f *fetcher) childrenPage(ctx context.Context, id types.NotionID, cursor string) (*types.List, error) {
	query := url.Values{"page_size": {strconv.Itoa(pageSize)}}
	if cursor != "" {
		query.Set("start_cursor", cursor)
	}
	var list types.List
	key := "children/" + id.String()
	if err := f.client.do(ctx, key, http.MethodGet, "/blocks/"+id.String()+"/children", query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// databasePages 查询数据库的页面列表并为每个页面组装块树
//
// 与 fetchChildren 同构：查询页串行翻页，页面到达后立刻
// 并发安排它的块树抓取，走同一套限速、去重和重试。
func (f *fetcher) databasePages(ctx context.Context, id types.NotionID) ([]types.Page, error) {
	key := "database/" + id.String()
	v, err, _ := f.flight.Do(key, func() (any, error) {
		if cached, ok := f.load(key); ok {
			return cached, nil
		}
		pages, err := f.fetchDatabasePages(ctx, id)
		if err != nil {
			return nil, err
		}
		f.store(key, pages)
		return pages, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]types.Page), nil
}

func (f *fetcher) fetchDatabasePages(ctx context.Context, id types.NotionID) ([]types.Page, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var batches [][]types.Page
	cursor := ""
	for {
		list, err := f.databaseQueryPage(gctx, id, cursor)
		if err != nil {
			cancel()
			_ = g.Wait()
			return nil, err
		}

		batch := list.Results
		batches = append(batches, batch)
		for i := range batch {
			pg := &batch[i]
			g.Go(func() error {
				children, err := f.children(gctx, pg.ID)
				if err != nil {
					return err
				}
				pg.Children = children
				return nil
			})
		}

		if !list.HasMore || list.NextCursor == nil {
			break
		}
		cursor = *list.NextCursor
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, b := range batches {
		total += len(b)
	}
	out := make([]types.Page, 0, total)
	for _, b := range batches {
		out = append(out, b...)
	}
	return out, nil
}

// databaseQueryPage 数据库查询是 POST，分页参数在请求体里
func (f *fetcher) databaseQueryPage(ctx context.Context, id types.NotionID, cursor string) (*types.PageList, error) {
	body := struct {
		StartCursor string `json:"start_cursor,omitempty"`
		PageSize    int    `json:"page_size"`
	}{StartCursor: cursor, PageSize: pageSize}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var list types.PageList
	key := "database/" + id.String()
	if err := f.client.do(ctx, key, http.MethodPost, "/databases/"+id.String()+"/query", nil, payload, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// do 执行一次请求，带速率限制、并发限制和重试
//
// 重试发生在持有去重键的那一个 flight 里，等待者看到的是
// 同一串重试的最终结果，而不是各自重试。body 在重试间复用，
// 这也是这里用字节而不是 io.Reader 的原因。
func (c *Client) do(ctx context.Context, resource, method, path string, query url.Values, body []byte, out any) error {
	backoff := c.opts.BackoffBase
	var lastErr error
	lastTransient := false

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if c.opts.Logger != nil {
				c.opts.Logger.Printf("retrying %s (attempt %d/%d): %v", resource, attempt, c.opts.MaxAttempts, lastErr)
			}
			if err := sleep(ctx, backoff); err != nil {
				return &FetchError{Resource: resource, Attempts: attempt - 1, Transient: lastTransient, Err: lastErr}
			}
			backoff *= 2
			if backoff > c.opts.BackoffCap {
				backoff = c.opts.BackoffCap
			}
		}

		err := c.once(ctx, method, path, query, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		lastTransient = transientCause(err)
		if !lastTransient {
			return &FetchError{Resource: resource, Attempts: attempt, Transient: false, Err: err}
		}
		if ctx.Err() != nil {
			break
		}
	}
	return &FetchError{Resource: resource, Attempts: c.opts.MaxAttempts, Transient: true, Err: lastErr}
}

// once 单次请求：限流 → 占并发额度 → 请求 → 解析
func (c *Client) once(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	endpoint := c.opts.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	req.Header.Set("Notion-Version", notionVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		// 传输层失败一律按暂时性处理
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transportError{err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr types.Error
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr != nil || apiErr.Code == "" {
			// 错误体都解析不了：5xx/429 仍按暂时性处理
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return &transportError{err: fmt.Errorf("HTTP %d", resp.StatusCode)}
			}
			return fmt.Errorf("HTTP %d with unparseable error body", resp.StatusCode)
		}
		return &apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		// 响应体损坏：重试拿到的还是同样的损坏，按永久失败处理
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}

// transportError 网络层失败，总是暂时性的
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return e.err.Error()
}

func (e *transportError) Unwrap() error {
	return e.err
}

func transientCause(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var apiErr *types.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code.Transient()
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
