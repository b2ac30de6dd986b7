package types

// Language Notion 代码块的语言标签
//
// Notion 的取值是固定集合，但渲染层对未知值也必须容错
// （退化为纯转义文本），所以这里直接保留字符串。
type Language string

const (
	LangMermaid   Language = "mermaid"
	LangPlainText Language = "plain text"
)

// chromaNames Notion 语言标签 → chroma lexer 名称
//
// 大部分标签 chroma 能直接认出，这里只列出两边叫法不同的。
var chromaNames = map[Language]string{
	"c++":          "c++",
	"c#":           "c#",
	"f#":           "fsharp",
	"objective-c":  "objective-c",
	"vb.net":       "vb.net",
	"visual basic": "vb.net",
	"docker":       "docker",
	"shell":        "bash",
	"markup":       "html",
	"flow":         "javascript",
	"livescript":   "livescript",
	"webassembly":  "wast",
	"java/c/c++/c#": "java",
	LangPlainText:   "",
	LangMermaid:     "",
}

// ChromaName 返回 chroma 使用的 lexer 名称，空串表示不做高亮
func (l Language) ChromaName() string {
	if name, ok := chromaNames[l]; ok {
		return name
	}
	return string(l)
}
