package types

// AnchorPosition 标题锚点图标的位置
type AnchorPosition int

const (
	// AnchorNone 不渲染锚点
	AnchorNone AnchorPosition = iota
	// AnchorBefore 图标在标题文本前
	AnchorBefore
	// AnchorAfter 图标在标题文本后
	AnchorAfter
)

// HeadingAnchors 标题自链接锚点配置
type HeadingAnchors struct {
	Position AnchorPosition
	Icon     string
}

// RenderConfig 渲染配置
//
// CurrentPages 列出会被渲染进同一份 HTML 的页面 id：
// 指向这些页面的内部链接只用 #fragment，其余内部链接
// 先查 LinkMap，查不到回退为 /<page_id>。
type RenderConfig struct {
	HeadingAnchors HeadingAnchors
	CurrentPages   map[NotionID]struct{}
	LinkMap        map[NotionID]string

	// HeadingOffset 把 heading_1..3 整体下调的级数，
	// 页面标题占用 h1 时传 1
	HeadingOffset int
}

// DefaultRenderConfig 返回默认渲染配置
func DefaultRenderConfig() *RenderConfig {
	return &RenderConfig{
		HeadingAnchors: HeadingAnchors{Position: AnchorNone},
		CurrentPages:   map[NotionID]struct{}{},
		LinkMap:        map[NotionID]string{},
	}
}
