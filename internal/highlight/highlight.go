// Package highlight 把代码字符串渲染为带语法着色的 HTML 片段
//
// 流程分四步：
//  1. chroma 容错分词（语法错误的代码也产出尽力而为的 token 流）
//  2. 一组固定顺序的规则把 token 流变成 (字节区间, 类名) 捕获记录
//  3. 按起点升序、区间长度降序排序（同起点时外层区间先开）
//  4. 区间栈扫描，未捕获的字节转义直出，捕获区间输出嵌套 <span>
//
// 相同区间的后续捕获是细化而不是覆盖：类名追加到同一个 span 上。
// 未知语言、分词失败一律退化为纯转义文本，永远不报错。
package highlight

import (
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/riverfjs/notionify-go/internal/markup"
	"github.com/riverfjs/notionify-go/internal/types"
)

// capture 一条捕获记录：字节区间加上由外到内的类名序列
type capture struct {
	start, end int
	classes    []string
}

// token chroma token 加上它在源串里的字节区间
type token struct {
	start, end int
	typ        chroma.TokenType
	value      string
}

// Highlight 返回 code 的高亮 HTML（<code> 元素的内部内容）
func Highlight(code string, lang types.Language) string {
	if code == "" {
		return ""
	}

	name := lang.ChromaName()
	if name == "" {
		return markup.EscapeString(code)
	}
	lexer := lexers.Get(name)
	if lexer == nil {
		return markup.EscapeString(code)
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return markup.EscapeString(code)
	}

	toks := locate(it.Tokens())
	caps := applyRules(toks)
	caps = normalize(caps, len(code))
	return renderCaptures(code, caps)
}

// locate 累加 token 值的长度得到每个 token 的字节区间
func locate(raw []chroma.Token) []token {
	toks := make([]token, 0, len(raw))
	pos := 0
	for _, t := range raw {
		end := pos + len(t.Value)
		toks = append(toks, token{start: pos, end: end, typ: t.Type, value: t.Value})
		pos = end
	}
	return toks
}

// normalize 丢弃零长捕获、截断越界捕获，然后排序
//
// 个别 lexer 会在末尾补一个换行（EnsureNL），由此产生的越界
// 捕获在这里截回源串长度。
func normalize(caps []capture, limit int) []capture {
	out := caps[:0]
	for _, c := range caps {
		if c.end > limit {
			c.end = limit
		}
		if c.start >= c.end {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].start != out[j].start {
			return out[i].start < out[j].start
		}
		return out[i].end-out[i].start > out[j].end-out[j].start
	})
	return out
}

// renderCaptures 区间栈扫描：捕获之间的字节转义直出，
// 进入捕获时打开 <span>，到达区间终点时按逆序关闭
//
// 捕获偶尔会跨出当前未闭合区间（规则之间没有包含约束），
// 这属于违约输入，处理方式是把后到的区间截断到外层终点，
// 保证输出永远是良构嵌套。
func renderCaptures(code string, caps []capture) string {
	var sb strings.Builder
	sb.Grow(len(code) + len(caps)*32)

	pos := 0
	var stack []int // 未闭合 span 的终点，自外向内
	emit := func(to int) {
		if to > pos {
			sb.WriteString(markup.EscapeString(code[pos:to]))
			pos = to
		}
	}
	closeTop := func() {
		emit(stack[len(stack)-1])
		stack = stack[:len(stack)-1]
		sb.WriteString("</span>")
	}

	for _, c := range caps {
		for len(stack) > 0 && stack[len(stack)-1] <= c.start {
			closeTop()
		}
		emit(c.start)
		if len(stack) > 0 && c.end > stack[len(stack)-1] {
			c.end = stack[len(stack)-1]
		}
		if c.end <= c.start {
			continue
		}
		sb.WriteString(`<span class="`)
		for i, class := range c.classes {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strings.ReplaceAll(class, ".", "-"))
		}
		sb.WriteString(`">`)
		stack = append(stack, c.end)
	}
	for len(stack) > 0 {
		closeTop()
	}
	emit(len(code))

	return sb.String()
}
