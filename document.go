package notionify

import (
	"context"
	"net/http"

	"github.com/riverfjs/notionify-go/internal/download"
)

// Asset 渲染过程中登记的页面资源
type Asset struct {
	// URL 资源的远端地址
	URL string
	// Path 输出目录内的相对路径，如 media/<id>.png，
	// 与渲染出的 src 属性一致
	Path string
}

// Document 一次导出的产物
type Document struct {
	// ID 根块（页面）的 id
	ID NotionID
	// HTML 渲染结果，FullPage 选项决定是整页文档还是片段
	HTML string
	// Assets 页面引用的媒体资源，按首次出现顺序去重
	Assets []Asset

	httpClient *http.Client
}

// WordCount 统计文档正文的词数，CJK 字符逐字计数
func (d *Document) WordCount() int {
	return CountWords(stripTags(d.HTML))
}

// DownloadAssets 把文档引用的资源并发下载到 dir 下
//
// 写入路径是 dir 加上各资源的相对 Path，目录不存在时创建。
// 任何一个资源失败都会取消剩余下载并返回错误。
func (d *Document) DownloadAssets(ctx context.Context, dir string) error {
	if len(d.Assets) == 0 {
		return nil
	}
	client := d.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	set := download.NewSet()
	for _, a := range d.Assets {
		set.Insert(download.Downloadable{URL: a.URL, Path: a.Path})
	}
	return set.DownloadAll(ctx, client, dir)
}
