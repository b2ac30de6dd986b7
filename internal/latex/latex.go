// Package latex LaTeX→Unicode 近似转换
//
// 符号映射集中在表里，未知命令保留原文不报错；
// Unicode 表示不了的结构退回可读的 ASCII 近似。
// 只有花括号不配对会返回 error，调用方此时
// 应回退为展示原始表达式。
package latex

import (
	"errors"
	"strings"
)

// ErrUnbalanced 花括号不配对
var ErrUnbalanced = errors.New("latex: unbalanced braces")

// symbols 命令 → Unicode 符号
var symbols = map[string]string{
	"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ",
	"epsilon": "ε", "zeta": "ζ", "eta": "η", "theta": "θ",
	"iota": "ι", "kappa": "κ", "lambda": "λ", "mu": "μ",
	"nu": "ν", "xi": "ξ", "pi": "π", "rho": "ρ",
	"sigma": "σ", "tau": "τ", "phi": "φ", "chi": "χ",
	"psi": "ψ", "omega": "ω",
	"Gamma": "Γ", "Delta": "Δ", "Theta": "Θ", "Lambda": "Λ",
	"Xi": "Ξ", "Pi": "Π", "Sigma": "Σ", "Phi": "Φ",
	"Psi": "Ψ", "Omega": "Ω",
	"infty": "∞", "partial": "∂", "nabla": "∇",
	"pm": "±", "mp": "∓", "times": "×", "div": "÷", "cdot": "·",
	"leq": "≤", "le": "≤", "geq": "≥", "ge": "≥", "neq": "≠", "ne": "≠",
	"approx": "≈", "equiv": "≡", "sim": "∼", "propto": "∝",
	"to": "→", "rightarrow": "→", "leftarrow": "←",
	"Rightarrow": "⇒", "Leftarrow": "⇐", "leftrightarrow": "↔",
	"in": "∈", "notin": "∉", "subset": "⊂", "supset": "⊃",
	"subseteq": "⊆", "supseteq": "⊇", "cup": "∪", "cap": "∩",
	"emptyset": "∅", "forall": "∀", "exists": "∃", "neg": "¬",
	"land": "∧", "lor": "∨", "oplus": "⊕", "otimes": "⊗",
	"sum": "∑", "prod": "∏", "int": "∫", "oint": "∮",
	"ldots": "…", "dots": "…", "cdots": "⋯",
	"prime": "′", "circ": "∘", "degree": "°", "angle": "∠",
	"perp": "⊥", "parallel": "∥", "hbar": "ℏ", "ell": "ℓ",
	"Re": "ℜ", "Im": "ℑ", "aleph": "ℵ",
	"quad": " ", "qquad": "  ", ",": " ", ";": " ",
	"{": "{", "}": "}", "%": "%", "&": "&", "#": "#", "_": "_",
	"backslash": "\\", "|": "‖",
}

// superscripts 上标字符映射，映射不到的保留 ^{...} 原样
var superscripts = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴',
	'5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
	'+': '⁺', '-': '⁻', '=': '⁼', '(': '⁽', ')': '⁾',
	'n': 'ⁿ', 'i': 'ⁱ', 'T': 'ᵀ',
}

// subscripts 下标字符映射
var subscripts = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄',
	'5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
	'+': '₊', '-': '₋', '=': '₌', '(': '₍', ')': '₎',
	'a': 'ₐ', 'e': 'ₑ', 'i': 'ᵢ', 'j': 'ⱼ', 'k': 'ₖ',
	'm': 'ₘ', 'n': 'ₙ', 'x': 'ₓ',
}

// Convert 把一段 LaTeX 表达式转成 Unicode 近似文本
func Convert(expr string) (string, error) {
	out, rest, err := convertUntil(expr, 0)
	if err != nil {
		return "", err
	}
	if rest != len(expr) {
		// 多出来的右花括号
		return "", ErrUnbalanced
	}
	return out, nil
}

// convertUntil 从 pos 开始转换，遇到未配对的 } 时停下
func convertUntil(expr string, pos int) (string, int, error) {
	var sb strings.Builder
	for pos < len(expr) {
		switch expr[pos] {
		case '}':
			return sb.String(), pos, nil
		case '{':
			inner, next, err := convertGroup(expr, pos)
			if err != nil {
				return "", 0, err
			}
			sb.WriteString(inner)
			pos = next
		case '\\':
			text, next, err := convertCommand(expr, pos)
			if err != nil {
				return "", 0, err
			}
			sb.WriteString(text)
			pos = next
		case '^':
			text, next, err := convertScript(expr, pos+1, superscripts, "^")
			if err != nil {
				return "", 0, err
			}
			sb.WriteString(text)
			pos = next
		case '_':
			text, next, err := convertScript(expr, pos+1, subscripts, "_")
			if err != nil {
				return "", 0, err
			}
			sb.WriteString(text)
			pos = next
		default:
			sb.WriteByte(expr[pos])
			pos++
		}
	}
	return sb.String(), pos, nil
}

// convertGroup 转换 { ... }，返回内容和 } 之后的位置
func convertGroup(expr string, pos int) (string, int, error) {
	inner, end, err := convertUntil(expr, pos+1)
	if err != nil {
		return "", 0, err
	}
	if end >= len(expr) || expr[end] != '}' {
		return "", 0, ErrUnbalanced
	}
	return inner, end + 1, nil
}

// convertCommand 处理 \command，pos 指向反斜杠
func convertCommand(expr string, pos int) (string, int, error) {
	name, next := commandName(expr, pos+1)
	switch name {
	case "frac", "dfrac", "tfrac":
		num, next2, err := argument(expr, next)
		if err != nil {
			return "", 0, err
		}
		den, next3, err := argument(expr, next2)
		if err != nil {
			return "", 0, err
		}
		return wrapIfCompound(num) + "/" + wrapIfCompound(den), next3, nil
	case "sqrt":
		arg, next2, err := argument(expr, next)
		if err != nil {
			return "", 0, err
		}
		return "√(" + arg + ")", next2, nil
	case "text", "mathrm", "mathbf", "mathit", "operatorname":
		arg, next2, err := argument(expr, next)
		if err != nil {
			return "", 0, err
		}
		return arg, next2, nil
	case "left", "right":
		// 定界符尺寸提示，丢掉命令保留定界符本身
		return "", next, nil
	}
	if sym, ok := symbols[name]; ok {
		return sym, next, nil
	}
	// 未知命令：原样保留
	return expr[pos:next], next, nil
}

// commandName 读取命令名，单个非字母字符也构成命令（\, \{ 等）
func commandName(expr string, pos int) (string, int) {
	if pos >= len(expr) {
		return "", pos
	}
	if !isLetter(expr[pos]) {
		return string(expr[pos]), pos + 1
	}
	start := pos
	for pos < len(expr) && isLetter(expr[pos]) {
		pos++
	}
	return expr[start:pos], pos
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// argument 读取一个参数：{...} 组、\command 或单个字符
func argument(expr string, pos int) (string, int, error) {
	for pos < len(expr) && expr[pos] == ' ' {
		pos++
	}
	if pos >= len(expr) {
		return "", pos, nil
	}
	switch expr[pos] {
	case '{':
		return convertGroup(expr, pos)
	case '\\':
		return convertCommand(expr, pos)
	default:
		return string(expr[pos]), pos + 1, nil
	}
}

// convertScript 处理上标/下标，映射不全时保留原写法
func convertScript(expr string, pos int, table map[rune]rune, marker string) (string, int, error) {
	arg, next, err := argument(expr, pos)
	if err != nil {
		return "", 0, err
	}
	var sb strings.Builder
	for _, r := range arg {
		mapped, ok := table[r]
		if !ok {
			// 放弃整段映射，维持可读性
			if len([]rune(arg)) == 1 {
				return marker + arg, next, nil
			}
			return marker + "{" + arg + "}", next, nil
		}
		sb.WriteRune(mapped)
	}
	return sb.String(), next, nil
}

func wrapIfCompound(s string) string {
	if len([]rune(s)) <= 1 {
		return s
	}
	return "(" + s + ")"
}
