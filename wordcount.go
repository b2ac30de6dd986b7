package notionify

import (
	"strings"

	"github.com/riverfjs/notionify-go/internal/util"
)

// CountWords 计算一段纯文本的词数
//
// CJK 字符（汉字、假名、谚文）每个算一个词，
// 其余文字按空白分隔计数，适合中英混排的页面。
func CountWords(text string) int {
	return util.CountWords(text)
}

// UTF16Len returns the length of text measured in UTF-16 code units.
func UTF16Len(text string) int {
	return util.UTF16Len(text)
}

// stripTags 去掉 HTML 标签留下文本内容，用于词数统计
//
// 只做标签剥离，不解析实体；统计口径下误差可以忽略。
func stripTags(html string) string {
	var sb strings.Builder
	sb.Grow(len(html))
	inTag := false
	for _, r := range html {
		switch {
		case inTag:
			if r == '>' {
				inTag = false
				sb.WriteByte(' ')
			}
		case r == '<':
			inTag = true
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
