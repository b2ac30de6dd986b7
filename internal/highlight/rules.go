package highlight

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
)

// 输出的语义类名集合（HTML 里 "." 会换成 "-"）
const (
	classAttribute       = "attribute"
	classComment         = "comment"
	classConstant        = "constant"
	classFunction        = "function"
	classKeyword         = "keyword"
	classLabel           = "label"
	classNamespace       = "namespace"
	classOperator        = "operator"
	classPunctuation     = "punctuation"
	classString          = "string"
	classType            = "type"
	classTypeBuiltin     = "type.builtin"
	classVariableBuiltin = "variable.builtin"
)

// rule 一条捕获规则，按声明顺序执行
//
// 相同区间的后续捕获在 add 里合并成多类 span，
// 所以规则顺序决定类名顺序，而不是互相覆盖。
type rule struct {
	name  string
	apply func(toks []token, add func(capture))
}

// rules 固定的规则表
//
// 顺序有意义：基础映射先行，之后的规则细化。
var rules = []rule{
	{name: "tokens", apply: tokenClassRule},
	{name: "strings", apply: stringRule},
	{name: "calls", apply: callRule},
	{name: "capitalized", apply: capitalizedRule},
}

func applyRules(toks []token) []capture {
	var caps []capture
	add := func(c capture) {
		// 相同区间 → 细化：把类名挂到已有捕获上
		for i := range caps {
			if caps[i].start == c.start && caps[i].end == c.end {
				for _, class := range c.classes {
					if !contains(caps[i].classes, class) {
						caps[i].classes = append(caps[i].classes, class)
					}
				}
				return
			}
		}
		caps = append(caps, c)
	}
	for _, r := range rules {
		r.apply(toks, add)
	}
	return caps
}

func contains(classes []string, class string) bool {
	for _, c := range classes {
		if c == class {
			return true
		}
	}
	return false
}

// tokenClassRule chroma token 类别 → 类名的基础映射
//
// 字符串类 token 交给 stringRule（要处理外层区间和转义序列），
// 普通标识符交给 calls/capitalized 两条细化规则。
func tokenClassRule(toks []token, add func(capture)) {
	for _, t := range toks {
		if t.typ.InCategory(chroma.LiteralString) {
			continue
		}
		class := classForToken(t.typ)
		if class == "" {
			continue
		}
		add(capture{start: t.start, end: t.end, classes: []string{class}})
	}
}

func classForToken(typ chroma.TokenType) string {
	switch typ {
	case chroma.KeywordType:
		return classTypeBuiltin
	case chroma.NameFunction, chroma.NameFunctionMagic:
		return classFunction
	case chroma.NameClass:
		return classType
	case chroma.NameNamespace:
		return classNamespace
	case chroma.NameBuiltin, chroma.NameBuiltinPseudo:
		return classVariableBuiltin
	case chroma.NameAttribute, chroma.NameDecorator:
		return classAttribute
	case chroma.NameLabel, chroma.NameTag:
		return classLabel
	case chroma.NameConstant:
		return classConstant
	}
	switch {
	case typ.InCategory(chroma.Keyword):
		return classKeyword
	case typ.InCategory(chroma.Comment):
		return classComment
	case typ.InCategory(chroma.LiteralNumber):
		return classConstant
	case typ.InCategory(chroma.Operator):
		return classOperator
	case typ.InCategory(chroma.Punctuation):
		return classPunctuation
	}
	return ""
}

// stringRule 字符串字面量
//
// 一段连续的字符串类 token（正文、转义序列、插值符号）合并为
// 一个外层 "string" 捕获；其中的转义序列单独再捕获为
// "constant"，嵌在外层区间里，由区间栈渲染成嵌套 span。
func stringRule(toks []token, add func(capture)) {
	for i := 0; i < len(toks); i++ {
		if !toks[i].typ.InCategory(chroma.LiteralString) {
			continue
		}
		j := i
		for j < len(toks) && toks[j].typ.InCategory(chroma.LiteralString) {
			j++
		}
		add(capture{start: toks[i].start, end: toks[j-1].end, classes: []string{classString}})
		for k := i; k < j; k++ {
			switch toks[k].typ {
			case chroma.LiteralStringEscape, chroma.LiteralStringInterpol:
				// 区间与外层相同（整段字符串就是一个转义）时
				// add 会触发同区间细化而不是嵌套，两种都良构
				add(capture{start: toks[k].start, end: toks[k].end, classes: []string{classConstant}})
			}
		}
		i = j - 1
	}
}

// callRule 调用目标：普通标识符后面紧跟 (（跳过空白）
func callRule(toks []token, add func(capture)) {
	for i, t := range toks {
		if !plainName(t.typ) {
			continue
		}
		if nextNonSpaceStartsWith(toks, i+1, '(') {
			add(capture{start: t.start, end: t.end, classes: []string{classFunction}})
		}
	}
}

// capitalizedRule 首字母大写的普通标识符按类型名处理
//
// 与 callRule 命中同一区间时合并为多类 span（如大写的调用目标）。
func capitalizedRule(toks []token, add func(capture)) {
	for _, t := range toks {
		if !plainName(t.typ) {
			continue
		}
		r, _ := utf8.DecodeRuneInString(t.value)
		if unicode.IsUpper(r) {
			add(capture{start: t.start, end: t.end, classes: []string{classType}})
		}
	}
}

func plainName(typ chroma.TokenType) bool {
	switch typ {
	case chroma.Name, chroma.NameOther, chroma.NameVariable:
		return true
	}
	return false
}

func nextNonSpaceStartsWith(toks []token, from int, ch byte) bool {
	for i := from; i < len(toks); i++ {
		v := toks[i].value
		if strings.TrimSpace(v) == "" {
			continue
		}
		v = strings.TrimLeft(v, " \t")
		return len(v) > 0 && v[0] == ch
	}
	return false
}
