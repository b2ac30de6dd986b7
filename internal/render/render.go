// Package render 把组装好的块树渲染成 HTML
//
// 渲染是纯内存操作：输入的块树由抓取层完整组装，
// 渲染过程中绝不回访网络。需要落盘的媒体资源只登记到
// 下载集合里，由调用方在渲染结束后统一抓取。
package render

import (
	"log"
	"strconv"

	"github.com/riverfjs/notionify-go/internal/download"
	"github.com/riverfjs/notionify-go/internal/highlight"
	"github.com/riverfjs/notionify-go/internal/latex"
	"github.com/riverfjs/notionify-go/internal/markup"
	"github.com/riverfjs/notionify-go/internal/mermaid"
	"github.com/riverfjs/notionify-go/internal/types"
)

// EquationFunc 把 LaTeX 表达式渲染成 HTML 片段
type EquationFunc func(expression string) (string, error)

// DefaultEquation 内置公式渲染：转成 Unicode 近似并转义
func DefaultEquation(expression string) (string, error) {
	s, err := latex.Convert(expression)
	if err != nil {
		return "", err
	}
	return markup.EscapeString(s), nil
}

// Renderer 块树到 HTML 的渲染器
type Renderer struct {
	Config    *types.RenderConfig
	Downloads *download.Set
	Equation  EquationFunc
	Logger    *log.Logger // 告警输出，nil 时静默
}

// New 创建渲染器，nil 配置使用默认值
func New(cfg *types.RenderConfig, downloads *download.Set) *Renderer {
	if cfg == nil {
		cfg = types.DefaultRenderConfig()
	}
	if downloads == nil {
		downloads = download.NewSet()
	}
	return &Renderer{
		Config:    cfg,
		Downloads: downloads,
		Equation:  DefaultEquation,
	}
}

// RenderHTML 渲染完整的 HTML 文档
//
// head 是调用方提供的原样插入的 head 片段，不做解析和转义。
func (r *Renderer) RenderHTML(blocks []types.Block, head string) string {
	b := markup.NewBuilder()
	b.Raw("<!DOCTYPE html>")
	b.Open("html", markup.Attr{Key: "lang", Value: "en"})
	b.Open("head")
	b.Void("meta", markup.Attr{Key: "charset", Value: "utf-8"})
	b.Void("meta",
		markup.Attr{Key: "name", Value: "viewport"},
		markup.Attr{Key: "content", Value: "width=device-width, initial-scale=1"},
	)
	b.Void("link",
		markup.Attr{Key: "rel", Value: "stylesheet"},
		markup.Attr{Key: "href", Value: "styles/highlight.css"},
	)
	b.Raw(head)
	b.Close()
	b.Open("body")
	b.Open("main")
	r.RenderBlocks(b, blocks, "", 0)
	b.CloseAll()
	return b.String()
}

// RenderPage 渲染单个页面：页面标题占 h1，正文标题整体下调一级
func (r *Renderer) RenderPage(id types.NotionID, title []types.RichText, children []types.Block) string {
	b := markup.NewBuilder()
	r.renderHeading(b, id, "", 1, title)
	r.RenderBlocks(b, children, "", 1)
	return b.String()
}

// RenderBlocks 渲染一组同级块
//
// 从左到右扫描，连续的同类列表项并成一个容器；
// 任何非列表块或另一类列表项都会结束当前分组。
func (r *Renderer) RenderBlocks(b *markup.Builder, blocks []types.Block, class string, downgrade int) {
	for i := 0; i < len(blocks); {
		kind := blocks[i].ListKind()
		if kind == types.ListNone {
			r.renderBlock(b, &blocks[i], class, downgrade)
			i++
			continue
		}
		j := i + 1
		for j < len(blocks) && blocks[j].ListKind() == kind {
			j++
		}
		r.renderList(b, kind, blocks[i:j], class, downgrade)
		i = j
	}
}

func (r *Renderer) renderList(b *markup.Builder, kind types.ListKind, items []types.Block, class string, downgrade int) {
	tag := "ul"
	if kind == types.ListNumbered {
		tag = "ol"
	}
	b.Open(tag, classAttr(class)...)
	for i := range items {
		item := &items[i]
		b.Open("li", markup.Attr{Key: "id", Value: item.ID.String()})
		if item.Type == "to_do" && item.ToDo != nil {
			attrs := []markup.Attr{
				{Key: "type", Value: "checkbox"},
				{Key: "disabled"},
			}
			if item.ToDo.Checked {
				attrs = append(attrs, markup.Attr{Key: "checked"})
			}
			b.Void("input", attrs...)
			b.Text(" ")
		}
		r.RenderRichText(b, item.RichTextContent())
		r.RenderBlocks(b, item.Children, "indent", downgrade)
		b.Close()
	}
	b.Close()
}

func classAttr(class string) []markup.Attr {
	if class == "" {
		return nil
	}
	return []markup.Attr{{Key: "class", Value: class}}
}

func idClassAttrs(id types.NotionID, class string) []markup.Attr {
	attrs := []markup.Attr{{Key: "id", Value: id.String()}}
	return append(attrs, classAttr(class)...)
}

func (r *Renderer) renderBlock(b *markup.Builder, blk *types.Block, class string, downgrade int) {
	switch blk.Type {
	case "heading_1":
		r.renderHeading(b, blk.ID, class, 1+downgrade+r.Config.HeadingOffset, blk.RichTextContent())
	case "heading_2":
		r.renderHeading(b, blk.ID, class, 2+downgrade+r.Config.HeadingOffset, blk.RichTextContent())
	case "heading_3":
		r.renderHeading(b, blk.ID, class, 3+downgrade+r.Config.HeadingOffset, blk.RichTextContent())
	case "divider":
		b.Void("hr", markup.Attr{Key: "id", Value: blk.ID.String()})
	case "paragraph":
		r.renderParagraph(b, blk, class, downgrade)
	case "quote":
		b.Open("blockquote", idClassAttrs(blk.ID, class)...)
		r.RenderRichText(b, blk.RichTextContent())
		r.RenderBlocks(b, blk.Children, "indent", downgrade)
		b.Close()
	case "callout":
		r.renderCallout(b, blk, downgrade)
	case "code":
		r.renderCode(b, blk)
	case "image":
		r.renderImage(b, blk)
	case "video":
		r.renderVideo(b, blk)
	case "equation":
		r.renderEquationBlock(b, blk)
	case "table":
		r.renderTable(b, blk)
	default:
		b.Comment("unsupported block type: " + blk.Type + " (" + blk.ID.String() + ")")
	}
}

// renderHeading 渲染标题，级别超过 h6 时压到 h6
func (r *Renderer) renderHeading(b *markup.Builder, id types.NotionID, class string, level int, runs []types.RichText) {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	b.Open("h"+strconv.Itoa(level), idClassAttrs(id, class)...)
	switch r.Config.HeadingAnchors.Position {
	case types.AnchorBefore:
		r.writeAnchor(b, id)
		b.Text(" ")
		r.RenderRichText(b, runs)
	case types.AnchorAfter:
		r.RenderRichText(b, runs)
		b.Text(" ")
		r.writeAnchor(b, id)
	default:
		r.RenderRichText(b, runs)
	}
	b.Close()
}

func (r *Renderer) writeAnchor(b *markup.Builder, id types.NotionID) {
	b.Open("a", markup.Attr{Key: "href", Value: "#" + id.String()})
	b.Text(r.Config.HeadingAnchors.Icon)
	b.Close()
}

// renderParagraph 无子块时输出 <p>，有子块时外包一层 <div>
//
// HTML 不允许 <p> 嵌套，Notion 却允许段落带子块，
// 所以带子块的段落降级为 div 并告警。
func (r *Renderer) renderParagraph(b *markup.Builder, blk *types.Block, class string, downgrade int) {
	if len(blk.Children) == 0 {
		b.Open("p", idClassAttrs(blk.ID, class)...)
		r.RenderRichText(b, blk.RichTextContent())
		b.Close()
		return
	}

	if r.Logger != nil {
		r.Logger.Printf("paragraph %s has children, rendering as <div> wrapper", blk.ID)
	}
	b.Open("div", idClassAttrs(blk.ID, class)...)
	b.Open("p")
	r.RenderRichText(b, blk.RichTextContent())
	b.Close()
	r.RenderBlocks(b, blk.Children, "indent", downgrade)
	b.Close()
}

func (r *Renderer) renderCallout(b *markup.Builder, blk *types.Block, downgrade int) {
	b.Open("aside", markup.Attr{Key: "id", Value: blk.ID.String()})

	b.Open("div")
	if blk.Callout != nil && blk.Callout.Icon != nil {
		icon := blk.Callout.Icon
		if icon.Emoji != "" {
			b.Open("span", markup.Attr{Key: "role", Value: "img"})
			b.Text(icon.Emoji)
			b.Close()
		} else if url := icon.URL(); url != "" {
			if d, err := download.ForBlock(blk.ID, url); err == nil {
				r.Downloads.Insert(d)
				b.Void("img", markup.Attr{Key: "src", Value: d.Path})
			}
		}
	}
	b.Close()

	b.Open("div")
	b.Open("p")
	r.RenderRichText(b, blk.RichTextContent())
	b.Close()
	r.RenderBlocks(b, blk.Children, "indent", downgrade)
	b.Close()

	b.Close()
}

// renderCode 代码块：mermaid 画成图，其余走语法高亮
func (r *Renderer) renderCode(b *markup.Builder, blk *types.Block) {
	if blk.Code == nil {
		return
	}
	source := types.PlainText(blk.Code.RichText)
	if blk.Code.Language == types.LangMermaid {
		r.renderMermaid(b, blk, source)
		return
	}

	preAttrs := []markup.Attr{{Key: "id", Value: blk.ID.String()}}
	codeAttrs := []markup.Attr{}
	if cls := blk.Code.Language.ChromaName(); cls != "" {
		preAttrs = append(preAttrs, markup.Attr{Key: "class", Value: cls})
		codeAttrs = append(codeAttrs, markup.Attr{Key: "class", Value: cls})
	}
	b.Open("pre", preAttrs...)
	b.Open("code", codeAttrs...)
	b.Raw(highlight.Highlight(source, blk.Code.Language))
	b.Close()
	b.Close()
}

// renderMermaid 把 mermaid 源码渲染成 mermaid.ink 图片，
// 说明文字里附 mermaid.live 的编辑链接
func (r *Renderer) renderMermaid(b *markup.Builder, blk *types.Block, source string) {
	inkURL, err := mermaid.GetMermaidInkURL(source)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Printf("mermaid %s: %v", blk.ID, err)
		}
		b.Open("pre", markup.Attr{Key: "id", Value: blk.ID.String()}, markup.Attr{Key: "class", Value: "mermaid"})
		b.Open("code")
		b.Text(source)
		b.Close()
		b.Close()
		return
	}

	b.Open("figure", markup.Attr{Key: "id", Value: blk.ID.String()})
	b.Void("img",
		markup.Attr{Key: "src", Value: inkURL},
		markup.Attr{Key: "alt", Value: "Mermaid diagram"},
	)
	b.Open("figcaption")
	if len(blk.Code.Caption) > 0 {
		r.RenderRichText(b, blk.Code.Caption)
	} else if liveURL, err := mermaid.GetMermaidLiveURL(source); err == nil {
		b.Open("a",
			markup.Attr{Key: "href", Value: liveURL},
			markup.Attr{Key: "target", Value: "_blank"},
			markup.Attr{Key: "rel", Value: "noreferrer noopener"},
		)
		b.Text("View on mermaid.live")
		b.Close()
	}
	b.Close()
	b.Close()
}

func (r *Renderer) renderImage(b *markup.Builder, blk *types.Block) {
	if blk.Image == nil {
		return
	}
	d, err := download.ForBlock(blk.ID, blk.Image.URL())
	if err != nil {
		if r.Logger != nil {
			r.Logger.Printf("image %s: %v", blk.ID, err)
		}
		return
	}
	r.Downloads.Insert(d)

	if len(blk.Image.Caption) > 0 {
		b.Open("figure", markup.Attr{Key: "id", Value: blk.ID.String()})
		b.Void("img", markup.Attr{Key: "src", Value: d.Path})
		b.Open("figcaption")
		r.RenderRichText(b, blk.Image.Caption)
		b.Close()
		b.Close()
		return
	}

	if r.Logger != nil {
		r.Logger.Printf("image %s has no caption, screen readers get nothing", blk.ID)
	}
	b.Void("img",
		markup.Attr{Key: "id", Value: blk.ID.String()},
		markup.Attr{Key: "src", Value: d.Path},
	)
}

func (r *Renderer) renderVideo(b *markup.Builder, blk *types.Block) {
	if blk.Video == nil {
		return
	}
	d, err := download.ForBlock(blk.ID, blk.Video.URL())
	if err != nil {
		if r.Logger != nil {
			r.Logger.Printf("video %s: %v", blk.ID, err)
		}
		return
	}
	r.Downloads.Insert(d)

	writeVideo := func(attrs ...markup.Attr) {
		attrs = append(attrs,
			markup.Attr{Key: "controls"},
			markup.Attr{Key: "src", Value: d.Path},
		)
		b.Open("video", attrs...)
		b.Open("p")
		b.Text("Your browser does not support videos. ")
		b.Open("a", markup.Attr{Key: "href", Value: d.Path})
		b.Text("Download the video instead.")
		b.Close()
		b.Close()
		b.Close()
	}

	if len(blk.Video.Caption) > 0 {
		b.Open("figure", markup.Attr{Key: "id", Value: blk.ID.String()})
		writeVideo()
		b.Open("figcaption")
		r.RenderRichText(b, blk.Video.Caption)
		b.Close()
		b.Close()
		return
	}
	writeVideo(markup.Attr{Key: "id", Value: blk.ID.String()})
}

func (r *Renderer) renderEquationBlock(b *markup.Builder, blk *types.Block) {
	if blk.Equation == nil {
		return
	}
	b.Open("div",
		markup.Attr{Key: "id", Value: blk.ID.String()},
		markup.Attr{Key: "class", Value: "equation"},
	)
	rendered, err := r.Equation(blk.Equation.Expression)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Printf("equation %s: %v", blk.ID, err)
		}
		b.Text(blk.Equation.Expression)
	} else {
		b.Raw(rendered)
	}
	b.Close()
}

// renderTable 表格行是 table_row 子块，单元格走富文本组装
func (r *Renderer) renderTable(b *markup.Builder, blk *types.Block) {
	if blk.Table == nil {
		return
	}
	b.Open("table", markup.Attr{Key: "id", Value: blk.ID.String()})
	for rowIdx := range blk.Children {
		row := &blk.Children[rowIdx]
		if row.Type != "table_row" || row.TableRow == nil {
			continue
		}
		headerRow := blk.Table.HasColumnHeader && rowIdx == 0
		b.Open("tr", markup.Attr{Key: "id", Value: row.ID.String()})
		for cellIdx, cell := range row.TableRow.Cells {
			tag := "td"
			if headerRow || (blk.Table.HasRowHeader && cellIdx == 0) {
				tag = "th"
			}
			b.Open(tag)
			r.RenderRichText(b, cell)
			b.Close()
		}
		b.Close()
	}
	b.Close()
}
