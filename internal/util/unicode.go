package util

import "unicode"

// UTF16Len returns the length of text measured in UTF-16 code units.
//
// Characters outside the BMP (codepoint > 0xFFFF) take 2 code units
// (a surrogate pair); all others take 1.
func UTF16Len(text string) int {
	count := 0
	for _, r := range text {
		if r > 0xFFFF {
			count += 2
		} else {
			count++
		}
	}
	return count
}

// IsCJK 判断一个字符是否属于中日韩统一表意文字或假名
func IsCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// CountWords 统计一段纯文本的词数
//
// CJK 字符每个算一个词，其余按空白分隔的连续段算一个词。
// 中英文混排的文本两部分分别计数后相加。
func CountWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case IsCJK(r):
			count++
			inWord = false
		case unicode.IsSpace(r):
			inWord = false
		default:
			if !inWord {
				count++
				inWord = true
			}
		}
	}
	return count
}
