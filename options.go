package notionify

import (
	"net/http"
	"time"

	"github.com/riverfjs/notionify-go/internal/client"
	"github.com/riverfjs/notionify-go/internal/render"
	"github.com/riverfjs/notionify-go/internal/types"
)

// ExportOptions holds options for fetching and rendering.
type ExportOptions struct {
	Token             string
	HTTPClient        *http.Client
	BaseURL           string
	Concurrency       int64
	RequestsPerSecond float64
	MaxAttempts       int

	Config   *RenderConfig
	Equation render.EquationFunc
	FullPage bool
	Head     string
}

// Option is a function that configures ExportOptions.
type Option func(*ExportOptions)

// WithToken sets the Notion integration token.
func WithToken(token string) Option {
	return func(opts *ExportOptions) {
		opts.Token = token
	}
}

// WithHTTPClient sets a custom HTTP client for API calls and downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(opts *ExportOptions) {
		opts.HTTPClient = c
	}
}

// WithBaseURL overrides the Notion API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(opts *ExportOptions) {
		opts.BaseURL = url
	}
}

// WithConcurrency sets the global in-flight request ceiling.
func WithConcurrency(n int64) Option {
	return func(opts *ExportOptions) {
		opts.Concurrency = n
	}
}

// WithRequestRate sets the request rate limit in requests per second.
func WithRequestRate(perSecond float64) Option {
	return func(opts *ExportOptions) {
		opts.RequestsPerSecond = perSecond
	}
}

// WithMaxAttempts sets the per-request attempt ceiling, first try included.
func WithMaxAttempts(n int) Option {
	return func(opts *ExportOptions) {
		opts.MaxAttempts = n
	}
}

// WithConfig sets a custom RenderConfig.
//
// A zero-value RenderConfig is valid input; nil maps are initialized
// so later options can write into them.
func WithConfig(config *RenderConfig) Option {
	return func(opts *ExportOptions) {
		if config.CurrentPages == nil {
			config.CurrentPages = map[NotionID]struct{}{}
		}
		if config.LinkMap == nil {
			config.LinkMap = map[NotionID]string{}
		}
		opts.Config = config
	}
}

// WithHeadingAnchors 启用标题自链接锚点
func WithHeadingAnchors(position AnchorPosition, icon string) Option {
	return func(opts *ExportOptions) {
		opts.Config.HeadingAnchors = types.HeadingAnchors{Position: position, Icon: icon}
	}
}

// WithLinkMap 设置页面 id 到 URL 路径的映射，用于改写内部链接
func WithLinkMap(linkMap map[NotionID]string) Option {
	return func(opts *ExportOptions) {
		opts.Config.LinkMap = linkMap
	}
}

// WithCurrentPages 声明会被渲染进同一份 HTML 的页面集合，
// 指向它们的内部链接只用 #fragment
func WithCurrentPages(ids ...NotionID) Option {
	return func(opts *ExportOptions) {
		if opts.Config.CurrentPages == nil {
			opts.Config.CurrentPages = map[NotionID]struct{}{}
		}
		for _, id := range ids {
			opts.Config.CurrentPages[id] = struct{}{}
		}
	}
}

// WithEquationRenderer 替换内置的 LaTeX 转 Unicode 公式渲染器
//
// 渲染器返回的字符串按 HTML 原样插入，调用方自行负责转义。
func WithEquationRenderer(fn func(expression string) (string, error)) Option {
	return func(opts *ExportOptions) {
		opts.Equation = fn
	}
}

// WithFullPage 输出完整 HTML 文档，head 片段原样插入 <head>
func WithFullPage(head string) Option {
	return func(opts *ExportOptions) {
		opts.FullPage = true
		opts.Head = head
	}
}

// defaultExportOptions returns the default options.
func defaultExportOptions() *ExportOptions {
	return &ExportOptions{
		Config: types.DefaultRenderConfig(),
	}
}

// applyOptions applies the given options to the default options.
func applyOptions(options ...Option) *ExportOptions {
	opts := defaultExportOptions()
	for _, opt := range options {
		opt(opts)
	}
	return opts
}

func (o *ExportOptions) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (o *ExportOptions) newClient() *client.Client {
	return client.New(o.Token, client.Options{
		BaseURL:           o.BaseURL,
		HTTPClient:        o.HTTPClient,
		Concurrency:       o.Concurrency,
		RequestsPerSecond: o.RequestsPerSecond,
		MaxAttempts:       o.MaxAttempts,
		Logger:            Logger,
	})
}
