package notionify

import (
	"sync"

	"github.com/riverfjs/notionify-go/internal/types"
)

// 导出类型别名
type (
	Block          = types.Block
	Page           = types.Page
	RichText       = types.RichText
	NotionID       = types.NotionID
	Language       = types.Language
	RenderConfig   = types.RenderConfig
	AnchorPosition = types.AnchorPosition
)

// 锚点位置
const (
	AnchorNone   = types.AnchorNone
	AnchorBefore = types.AnchorBefore
	AnchorAfter  = types.AnchorAfter
)

// ParseID 归一化并校验一个 Notion id
func ParseID(s string) (NotionID, error) {
	return types.ParseNotionID(s)
}

var (
	defaultConfig     *RenderConfig
	defaultConfigOnce sync.Once
)

// DefaultConfig returns the default render configuration (singleton).
func DefaultConfig() *RenderConfig {
	defaultConfigOnce.Do(func() {
		defaultConfig = types.DefaultRenderConfig()
	})
	return defaultConfig
}
