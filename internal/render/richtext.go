package render

import (
	"time"

	"github.com/riverfjs/notionify-go/internal/markup"
	"github.com/riverfjs/notionify-go/internal/types"
)

// RenderRichText 把富文本序列组装成行内 HTML
//
// 相邻的纯文本片段若标注完全相同且都不带链接，先拼接再转义，
// 避免输出一串碎裂的同款 <strong>。空的非公式片段不产出任何标签。
func (r *Renderer) RenderRichText(b *markup.Builder, runs []types.RichText) {
	for i := 0; i < len(runs); {
		run := &runs[i]
		switch run.Type {
		case "equation":
			r.renderInlineEquation(b, run)
			i++
		case "mention":
			r.renderMention(b, run)
			i++
		default:
			j := i + 1
			if textLink(run) == nil {
				for j < len(runs) && mergeable(run, &runs[j]) {
					j++
				}
			}
			content := ""
			for k := i; k < j; k++ {
				content += textContent(&runs[k])
			}
			r.renderTextRun(b, run, content)
			i = j
		}
	}
}

func textContent(run *types.RichText) string {
	if run.Text != nil {
		return run.Text.Content
	}
	return run.PlainText
}

func textLink(run *types.RichText) *types.TextLink {
	if run.Text != nil {
		return run.Text.Link
	}
	return nil
}

// mergeable 后一个片段能否并进前一个：同为无链接纯文本且标注一致
func mergeable(a, b *types.RichText) bool {
	if b.Type == "equation" || b.Type == "mention" {
		return false
	}
	if textLink(b) != nil {
		return false
	}
	return a.Annotations == b.Annotations
}

// renderTextRun 按固定嵌套顺序包裹一段文本：
// 链接 > 加粗 > 斜体 > 删除线 > 下划线 > 颜色 > 行内代码
func (r *Renderer) renderTextRun(b *markup.Builder, run *types.RichText, content string) {
	if content == "" {
		return
	}

	opened := 0
	if link := textLink(run); link != nil {
		r.openLink(b, link)
		opened++
	}
	a := run.Annotations
	if a.Bold {
		b.Open("strong")
		opened++
	}
	if a.Italic {
		b.Open("em")
		opened++
	}
	if a.Strikethrough {
		b.Open("del")
		opened++
	}
	if a.Underline {
		b.Open("span", markup.Attr{Key: "class", Value: "underline"})
		opened++
	}
	if cls := a.Color.CSSClass(); cls != "" {
		b.Open("span", markup.Attr{Key: "class", Value: cls})
		opened++
	}
	if a.Code {
		b.Open("code")
		opened++
	}

	b.Text(content)

	for ; opened > 0; opened-- {
		b.Close()
	}
}

// openLink 打开一个 <a>
//
// 外部链接在新标签页打开；内部链接按 CurrentPages / LinkMap
// 规则换算成 fragment 或路径。
func (r *Renderer) openLink(b *markup.Builder, link *types.TextLink) {
	page, block, internal := link.Internal()
	if !internal {
		b.Open("a",
			markup.Attr{Key: "href", Value: link.URL},
			markup.Attr{Key: "target", Value: "_blank"},
			markup.Attr{Key: "rel", Value: "noreferrer noopener"},
		)
		return
	}

	href := ""
	if _, current := r.Config.CurrentPages[page]; current {
		if block != "" {
			href = "#" + block
		} else {
			href = "#" + page.String()
		}
	} else {
		if path, ok := r.Config.LinkMap[page]; ok {
			href = path
		} else {
			href = "/" + page.String()
		}
		if block != "" {
			href += "#" + block
		}
	}
	b.Open("a", markup.Attr{Key: "href", Value: href})
}

// renderInlineEquation 委托公式渲染器，失败时回退为转义的源码
func (r *Renderer) renderInlineEquation(b *markup.Builder, run *types.RichText) {
	expr := run.PlainText
	if run.Equation != nil {
		expr = run.Equation.Expression
	}
	rendered, err := r.Equation(expr)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Printf("equation %q: %v", expr, err)
		}
		b.Text(expr)
		return
	}
	b.Raw(rendered)
}

func (r *Renderer) renderMention(b *markup.Builder, run *types.RichText) {
	m := run.Mention
	if m == nil {
		b.Text(run.PlainText)
		return
	}
	switch m.Type {
	case "date":
		if m.Date == nil {
			b.Text(run.PlainText)
			return
		}
		writeDatetime(b, m.Date.Start)
		if m.Date.End != nil {
			b.Text(" to ")
			writeDatetime(b, *m.Date.End)
		}
	case "page":
		if m.Page == nil {
			b.Text(run.PlainText)
			return
		}
		r.openLink(b, &types.TextLink{URL: "/" + m.Page.ID.String()})
		b.Text(run.PlainText)
		b.Close()
	case "link_preview":
		if m.LinkPreview == nil {
			b.Text(run.PlainText)
			return
		}
		b.Open("a",
			markup.Attr{Key: "href", Value: m.LinkPreview.URL},
			markup.Attr{Key: "target", Value: "_blank"},
			markup.Attr{Key: "rel", Value: "noreferrer noopener"},
		)
		b.Text(m.LinkPreview.URL)
		b.Close()
	default:
		b.Text(run.PlainText)
	}
}

// writeDatetime 输出 <time>，datetime 属性沿用 Notion 的原始时间戳
//
// Notion 有两种格式：仅日期 2021-12-06，和带毫秒的 RFC3339。
// 正文渲染为可读形式，解析失败时原样输出。
func writeDatetime(b *markup.Builder, stamp string) {
	b.Open("time", markup.Attr{Key: "datetime", Value: stamp})
	if t, err := time.Parse("2006-01-02", stamp); err == nil {
		b.Text(t.Format("January 2, 2006"))
	} else if t, err := time.Parse(time.RFC3339, stamp); err == nil {
		b.Text(t.UTC().Format("January 2, 2006 3:04 pm"))
	} else {
		b.Text(stamp)
	}
	b.Close()
}
