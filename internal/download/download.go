// Package download 收集并取回页面引用的媒体资源
//
// 渲染阶段只登记 (URL, 相对路径)，真正的下载在渲染完成后
// 并发执行。同一路径只登记一次：同一个块 id 在多处出现时
// 不会重复下载。
package download

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	// webp 解码器注册：mermaid.ink 返回的是 webp
	_ "golang.org/x/image/webp"

	"github.com/riverfjs/notionify-go/internal/types"
)

// FilesDir 输出目录下存放媒体文件的子目录名
const FilesDir = "media"

// Downloadable 一项待下载资源：来源 URL 和输出目录内的相对路径
type Downloadable struct {
	URL  string
	Path string
}

// ForBlock 根据块 id 和来源 URL 推导资源路径 media/<id>.<ext>
//
// 媒体块的 file/external 变体都缺失时 URL 是空串，
// 这里报错，让渲染层走跳过路径，而不是登记一个
// 注定下载失败的资源拖垮整批下载。
func ForBlock(id types.NotionID, rawURL string) (Downloadable, error) {
	if rawURL == "" {
		return Downloadable{}, fmt.Errorf("media block %s has no source URL", id)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Downloadable{}, fmt.Errorf("parse media URL: %w", err)
	}
	ext := path.Ext(parsed.Path)
	return Downloadable{
		URL:  rawURL,
		Path: path.Join(FilesDir, id.String()+ext),
	}, nil
}

// Set 渲染期间并发安全的资源收集器
//
// 渲染器是树上多个 goroutine 之外的单线程，但 Set 也被
// 下载阶段和调用方共享，插入用互斥量保护并按路径去重。
type Set struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	items []Downloadable
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{seen: map[string]struct{}{}}
}

// Insert 登记一项资源，路径重复时丢弃
func (s *Set) Insert(d Downloadable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[d.Path]; ok {
		return
	}
	s.seen[d.Path] = struct{}{}
	s.items = append(s.items, d)
}

// Items 返回按登记顺序排列的资源快照
func (s *Set) Items() []Downloadable {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Downloadable, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of collected downloadables.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// DownloadAll 把收集到的资源全部下载到 output 目录
//
// 并发取回，单个资源失败立即取消其余下载并返回错误。
func (s *Set) DownloadAll(ctx context.Context, client *http.Client, output string) error {
	items := s.Items()
	if len(items) == 0 {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	if err := os.MkdirAll(filepath.Join(output, FilesDir), 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		g.Go(func() error {
			return fetch(ctx, client, item, output)
		})
	}
	return g.Wait()
}

func fetch(ctx context.Context, client *http.Client, item Downloadable, output string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", item.Path, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", item.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP %d", item.Path, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", item.Path, err)
	}

	// 过期的 S3 链接和挂掉的图床会带 200 返回错误页，
	// 落盘前先确认拿到的真是图片
	if isRasterPath(item.Path) {
		if _, _, ok := ProbeImage(data); !ok {
			return fmt.Errorf("download %s: response is not a decodable image", item.Path)
		}
	}

	dest := filepath.Join(output, filepath.FromSlash(item.Path))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", item.Path, err)
	}
	return nil
}

// ProbeImage 探测图片尺寸，返回 ok=false 表示不是已知图片格式
//
// png/jpeg/gif 由标准库负责，webp 靠上面注册的解码器。
func ProbeImage(data []byte) (width, height int, ok bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}

// isRasterPath 报告路径是否指向可用 image.DecodeConfig 校验的
// 位图格式（svg 等矢量格式探测不了，不在此列）
func isRasterPath(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}
