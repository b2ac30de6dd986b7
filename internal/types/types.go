package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NotionID Notion 对象的 UUID，统一使用无连字符的形式
//
// Notion API 返回带连字符的 UUID（8-4-4-4-12），但页面内锚点、
// 资源文件名等都使用去掉连字符的 32 位十六进制形式。
// 反序列化时直接归一化，之后所有比较和输出都基于同一种形式。
type NotionID string

// ParseNotionID 归一化并校验一个 Notion ID
func ParseNotionID(s string) (NotionID, error) {
	id := strings.ReplaceAll(s, "-", "")
	if len(id) != 32 {
		return "", fmt.Errorf("invalid Notion id %q: must be a UUIDv4", s)
	}
	for _, ch := range id {
		if !isHexDigit(ch) {
			return "", fmt.Errorf("invalid Notion id %q: must be a UUIDv4", s)
		}
	}
	return NotionID(strings.ToLower(id)), nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// UnmarshalJSON normalizes the id while decoding API responses.
func (id *NotionID) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseNotionID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id NotionID) String() string {
	return string(id)
}

// Block Notion 块对象
//
// https://developers.notion.com/reference/block
//
// Type 是类型标签，具体负载放在同名字段里（指针，未命中的为 nil）。
// Children 不是 API 字段：分页抓取层组装好子块后挂在这里，
// 渲染层只依赖 Children 和自身负载，从不回访网络。
type Block struct {
	Object         string   `json:"object"`
	ID             NotionID `json:"id"`
	CreatedTime    string   `json:"created_time"`
	LastEditedTime string   `json:"last_edited_time"`
	HasChildren    bool     `json:"has_children"`
	Archived       bool     `json:"archived"`
	Type           string   `json:"type"`

	Paragraph        *TextPayload      `json:"paragraph,omitempty"`
	Heading1         *HeadingPayload   `json:"heading_1,omitempty"`
	Heading2         *HeadingPayload   `json:"heading_2,omitempty"`
	Heading3         *HeadingPayload   `json:"heading_3,omitempty"`
	BulletedListItem *TextPayload      `json:"bulleted_list_item,omitempty"`
	NumberedListItem *TextPayload      `json:"numbered_list_item,omitempty"`
	ToDo             *ToDoPayload      `json:"to_do,omitempty"`
	Quote            *TextPayload      `json:"quote,omitempty"`
	Callout          *CalloutPayload   `json:"callout,omitempty"`
	Code             *CodePayload      `json:"code,omitempty"`
	Image            *MediaPayload     `json:"image,omitempty"`
	Video            *MediaPayload     `json:"video,omitempty"`
	Equation         *EquationPayload  `json:"equation,omitempty"`
	Table            *TablePayload     `json:"table,omitempty"`
	TableRow         *TableRowPayload  `json:"table_row,omitempty"`
	Divider          *struct{}         `json:"divider,omitempty"`
	ChildPage        *ChildPagePayload `json:"child_page,omitempty"`

	// Children 由抓取层填充，按页序 + 页内顺序排列
	Children []Block `json:"-"`
}

// TextPayload 带富文本和可选子块的通用负载（段落、引用、列表项）
type TextPayload struct {
	RichText []RichText `json:"rich_text"`
}

// HeadingPayload 标题负载，标题块没有子块
type HeadingPayload struct {
	RichText []RichText `json:"rich_text"`
}

// ToDoPayload 待办项负载
type ToDoPayload struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
}

// CalloutPayload 标注块负载
type CalloutPayload struct {
	RichText []RichText `json:"rich_text"`
	Icon     *Icon      `json:"icon"`
}

// CodePayload 代码块负载
type CodePayload struct {
	RichText []RichText `json:"rich_text"`
	Caption  []RichText `json:"caption,omitempty"`
	Language Language   `json:"language"`
}

// MediaPayload 图片/视频块负载
type MediaPayload struct {
	Type     string     `json:"type"`
	File     *HostedRef `json:"file,omitempty"`
	External *HostedRef `json:"external,omitempty"`
	Caption  []RichText `json:"caption,omitempty"`
}

// URL returns the source URL regardless of hosting variant.
func (m *MediaPayload) URL() string {
	if m.File != nil {
		return m.File.URL
	}
	if m.External != nil {
		return m.External.URL
	}
	return ""
}

// HostedRef Notion 文件对象的 file / external 变体内容
type HostedRef struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

// EquationPayload 公式块负载
type EquationPayload struct {
	Expression string `json:"expression"`
}

// TablePayload 表格块负载，行在 Children 里（table_row 块）
type TablePayload struct {
	TableWidth      int  `json:"table_width"`
	HasColumnHeader bool `json:"has_column_header"`
	HasRowHeader    bool `json:"has_row_header"`
}

// TableRowPayload 表格行负载
type TableRowPayload struct {
	Cells [][]RichText `json:"cells"`
}

// ChildPagePayload 子页面块负载
//
// 页面根块自己的类型就是 child_page，标题在这里而不是
// rich_text 里；Notion 给的是纯字符串。
type ChildPagePayload struct {
	Title string `json:"title"`
}

// Icon emoji 或文件形式的图标
type Icon struct {
	Type     string     `json:"type"`
	Emoji    string     `json:"emoji,omitempty"`
	File     *HostedRef `json:"file,omitempty"`
	External *HostedRef `json:"external,omitempty"`
}

// URL returns the hosted icon URL, empty for emoji icons.
func (i *Icon) URL() string {
	if i.File != nil {
		return i.File.URL
	}
	if i.External != nil {
		return i.External.URL
	}
	return ""
}

// RichTextContent 返回块自身的富文本内容，无富文本的块返回 nil
func (b *Block) RichTextContent() []RichText {
	switch b.Type {
	case "paragraph":
		if b.Paragraph != nil {
			return b.Paragraph.RichText
		}
	case "heading_1":
		if b.Heading1 != nil {
			return b.Heading1.RichText
		}
	case "heading_2":
		if b.Heading2 != nil {
			return b.Heading2.RichText
		}
	case "heading_3":
		if b.Heading3 != nil {
			return b.Heading3.RichText
		}
	case "bulleted_list_item":
		if b.BulletedListItem != nil {
			return b.BulletedListItem.RichText
		}
	case "numbered_list_item":
		if b.NumberedListItem != nil {
			return b.NumberedListItem.RichText
		}
	case "to_do":
		if b.ToDo != nil {
			return b.ToDo.RichText
		}
	case "quote":
		if b.Quote != nil {
			return b.Quote.RichText
		}
	case "callout":
		if b.Callout != nil {
			return b.Callout.RichText
		}
	case "code":
		if b.Code != nil {
			return b.Code.RichText
		}
	case "child_page":
		// 标题是纯字符串，包成单个 text 片段走统一的组装路径
		if b.ChildPage != nil {
			return []RichText{{
				Type:      "text",
				PlainText: b.ChildPage.Title,
				Text:      &TextContent{Content: b.ChildPage.Title},
			}}
		}
	}
	return nil
}

// ListKind 列表分组类别
type ListKind int

const (
	ListNone ListKind = iota
	ListBulleted
	ListNumbered
)

// ListKind 返回块参与列表分组的类别
//
// to_do 和 bulleted_list_item 共用无序分组，
// 渲染时连续的同类列表项会合并进同一个容器。
func (b *Block) ListKind() ListKind {
	switch b.Type {
	case "bulleted_list_item", "to_do":
		return ListBulleted
	case "numbered_list_item":
		return ListNumbered
	default:
		return ListNone
	}
}

// RichText Notion 富文本片段
//
// https://developers.notion.com/reference/rich-text
type RichText struct {
	Type        string      `json:"type"`
	PlainText   string      `json:"plain_text"`
	Href        string      `json:"href,omitempty"`
	Annotations Annotations `json:"annotations"`

	Text     *TextContent     `json:"text,omitempty"`
	Equation *EquationContent `json:"equation,omitempty"`
	Mention  *MentionContent  `json:"mention,omitempty"`
}

// TextContent 普通文本变体
type TextContent struct {
	Content string    `json:"content"`
	Link    *TextLink `json:"link,omitempty"`
}

// TextLink 文本上的链接
//
// 以 / 开头的 URL 是 Notion 内部页面引用（/<page_id> 或
// /<page_id>#<block_id>），其余是外部链接。
type TextLink struct {
	URL string `json:"url"`
}

// Internal splits an internal page reference into page and block parts.
// Returns ok=false for external links.
func (l *TextLink) Internal() (page NotionID, block string, ok bool) {
	if !strings.HasPrefix(l.URL, "/") {
		return "", "", false
	}
	ref := l.URL[1:]
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		ref, block = ref[:i], ref[i+1:]
	}
	page, err := ParseNotionID(ref)
	if err != nil {
		return "", "", false
	}
	return page, block, true
}

// EquationContent 行内公式变体
type EquationContent struct {
	Expression string `json:"expression"`
}

// MentionContent 提及变体（日期、页面、链接预览）
type MentionContent struct {
	Type        string              `json:"type"`
	Date        *DateMention        `json:"date,omitempty"`
	Page        *PageMention        `json:"page,omitempty"`
	LinkPreview *LinkPreviewMention `json:"link_preview,omitempty"`
}

// DateMention 日期提及，时间戳有两种格式：
// 仅日期 2021-12-06，或带毫秒的 RFC3339
type DateMention struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// PageMention 页面提及
type PageMention struct {
	ID NotionID `json:"id"`
}

// LinkPreviewMention 链接预览提及
type LinkPreviewMention struct {
	URL string `json:"url"`
}

// Annotations 富文本标注集合
type Annotations struct {
	Bold          bool  `json:"bold"`
	Italic        bool  `json:"italic"`
	Strikethrough bool  `json:"strikethrough"`
	Underline     bool  `json:"underline"`
	Code          bool  `json:"code"`
	Color         Color `json:"color"`
}

// Color Notion 颜色标注
type Color string

// ColorDefault 未着色
const ColorDefault Color = "default"

// CSSClass 返回颜色对应的 CSS 类名，default 返回空串
func (c Color) CSSClass() string {
	if c == "" || c == ColorDefault {
		return ""
	}
	return "color-" + strings.ReplaceAll(string(c), "_", "-")
}

// List Notion 分页列表响应
//
// https://developers.notion.com/reference/pagination
type List struct {
	Object     string  `json:"object"`
	Results    []Block `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// Page Notion 页面对象（数据库查询的结果行）
//
// https://developers.notion.com/reference/page
//
// Properties 按属性名索引，名字由数据库的列定义决定；
// 标题列的类型固定是 title。Children 不是 API 字段，
// 与 Block 相同，由抓取层组装。
type Page struct {
	Object         string                  `json:"object"`
	ID             NotionID                `json:"id"`
	CreatedTime    string                  `json:"created_time"`
	LastEditedTime string                  `json:"last_edited_time"`
	Archived       bool                    `json:"archived"`
	URL            string                  `json:"url"`
	Icon           *Icon                   `json:"icon,omitempty"`
	Properties     map[string]PageProperty `json:"properties"`

	Children []Block `json:"-"`
}

// PageProperty 页面属性值，只建模导出用得到的变体；
// 其余类型保留 Type 标签供调用方自行判断
type PageProperty struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Title    []RichText `json:"title,omitempty"`
	RichText []RichText `json:"rich_text,omitempty"`
}

// Title 返回标题列的富文本，找不到标题列时返回 nil
//
// 标题也可能带标注和提及，所以是富文本序列而不是字符串。
func (p *Page) Title() []RichText {
	for _, prop := range p.Properties {
		if prop.Type == "title" {
			return prop.Title
		}
	}
	return nil
}

// PageList 数据库查询的分页响应
type PageList struct {
	Object     string  `json:"object"`
	Results    []Page  `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// PlainText 拼接富文本序列的纯文本内容
func PlainText(runs []RichText) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.PlainText)
	}
	return sb.String()
}
