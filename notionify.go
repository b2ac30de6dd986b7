// Package notionify 将 Notion 页面导出为静态 HTML
//
// 这个包把 Notion API 返回的块树转换为可直接发布的 HTML 文档，
// 包括行内富文本组装、代码块语法高亮和页面资源收集。
//
// 核心功能：
//   - 并发抓取块树（分页、去重、限速、重试）
//   - 块树渲染为 HTML，列表自动分组
//   - 代码块语法高亮，mermaid 图表转为图片
//   - LaTeX 公式转 Unicode（可替换为自定义渲染器）
//   - 收集并下载页面引用的媒体资源
//
// 主要 API：
//   - Fetch(): 抓取完整块树
//   - Render(): 把块树渲染成 HTML 片段或整页文档
//   - Export(): 抓取 + 渲染，返回可落盘的 Document
//
// 示例：
//
//	doc, err := notionify.Export(ctx, pageID,
//	    notionify.WithToken(os.Getenv("NOTION_TOKEN")),
//	    notionify.WithHeadingAnchors(notionify.AnchorAfter, "#"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("index.html", []byte(doc.HTML), 0o644)
//	doc.DownloadAssets(ctx, "public")
package notionify

import (
	"context"
	"fmt"

	"github.com/riverfjs/notionify-go/internal/client"
	"github.com/riverfjs/notionify-go/internal/download"
	"github.com/riverfjs/notionify-go/internal/highlight"
	"github.com/riverfjs/notionify-go/internal/render"
	"github.com/riverfjs/notionify-go/internal/types"
)

// Fetch 抓取 documentID 对应的块和它的全部后代
//
// documentID 接受带或不带连字符的 UUID。抓取过程中同一资源
// 只请求一次，暂时性失败自动重试，永久性失败取消整棵树。
func Fetch(ctx context.Context, documentID string, options ...Option) (*Block, error) {
	opts := applyOptions(options...)
	id, err := types.ParseNotionID(documentID)
	if err != nil {
		return nil, err
	}
	return opts.newClient().FetchTree(ctx, id)
}

// Render 把抓取好的块树渲染成 Document
//
// root 的子块按同级顺序渲染。FullPage 选项决定输出是完整的
// HTML 文档（含 DOCTYPE 和 head），还是以页面标题开头的片段。
func Render(root *Block, options ...Option) (*Document, error) {
	if root == nil {
		return nil, fmt.Errorf("notionify: nil block tree")
	}
	opts := applyOptions(options...)
	return renderDocument(opts, root.ID, root.RichTextContent(), root.Children), nil
}

// renderDocument 渲染一棵组装好的块树，每个文档有独立的资源集合
func renderDocument(opts *ExportOptions, id NotionID, title []RichText, children []Block) *Document {
	downloads := download.NewSet()
	r := render.New(opts.Config, downloads)
	r.Logger = Logger
	if opts.Equation != nil {
		r.Equation = opts.Equation
	}

	var html string
	if opts.FullPage {
		html = r.RenderHTML(children, opts.Head)
	} else {
		html = r.RenderPage(id, title, children)
	}

	assets := make([]Asset, 0, downloads.Len())
	for _, d := range downloads.Items() {
		assets = append(assets, Asset{URL: d.URL, Path: d.Path})
	}

	return &Document{
		ID:     id,
		HTML:   html,
		Assets: assets,

		httpClient: opts.httpClient(),
	}
}

// Export 抓取并渲染一个页面，返回可落盘的 Document
func Export(ctx context.Context, documentID string, options ...Option) (*Document, error) {
	root, err := Fetch(ctx, documentID, options...)
	if err != nil {
		return nil, err
	}
	return Render(root, options...)
}

// FetchDatabase 查询数据库并抓取它的每个页面的完整块树
//
// 页面按查询结果顺序返回，标题在页面属性里（Page.Title）。
func FetchDatabase(ctx context.Context, databaseID string, options ...Option) ([]Page, error) {
	opts := applyOptions(options...)
	id, err := types.ParseNotionID(databaseID)
	if err != nil {
		return nil, err
	}
	return opts.newClient().FetchDatabasePages(ctx, id)
}

// ExportDatabase 抓取并渲染数据库里的所有页面，
// 每个页面一个 Document
func ExportDatabase(ctx context.Context, databaseID string, options ...Option) ([]*Document, error) {
	pages, err := FetchDatabase(ctx, databaseID, options...)
	if err != nil {
		return nil, err
	}
	opts := applyOptions(options...)
	docs := make([]*Document, 0, len(pages))
	for i := range pages {
		pg := &pages[i]
		docs = append(docs, renderDocument(opts, pg.ID, pg.Title(), pg.Children))
	}
	return docs, nil
}

// Highlight 对一段代码做语法高亮，返回 HTML 片段
//
// 未知语言降级为纯转义文本，永不失败。
func Highlight(code string, language Language) string {
	return highlight.Highlight(code, language)
}

// Transient 报告一个抓取错误是否属于可重试类别
func Transient(err error) bool {
	return client.Transient(err)
}
