package markup

import "strings"

// escapeTo writes s with <, >, & and " replaced by entities.
func escapeTo(sb *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			sb.WriteString("&amp;")
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		case '"':
			sb.WriteString("&quot;")
		default:
			sb.WriteByte(s[i])
		}
	}
}

// EscapeString returns s with HTML-significant characters escaped.
func EscapeString(s string) string {
	if !strings.ContainsAny(s, `&<>"`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	escapeTo(&sb, s)
	return sb.String()
}

// Attr is a single attribute on an element.
type Attr struct {
	Key   string
	Value string
}

// Builder accumulates an HTML fragment and tracks open elements so
// that every Open is eventually matched by a Close in reverse order.
// Content written with Text is escaped; Raw bypasses escaping and is
// reserved for fragments that are already valid markup.
type Builder struct {
	sb   strings.Builder
	open []string
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Open writes an opening tag with the given attributes and pushes it
// onto the open-element stack. Attributes with empty values are
// written as bare names; attribute values are escaped.
func (b *Builder) Open(tag string, attrs ...Attr) {
	b.startTag(tag, attrs)
	b.sb.WriteByte('>')
	b.open = append(b.open, tag)
}

// Void writes a self-contained element (hr, img, br, input).
func (b *Builder) Void(tag string, attrs ...Attr) {
	b.startTag(tag, attrs)
	b.sb.WriteByte('>')
}

func (b *Builder) startTag(tag string, attrs []Attr) {
	b.sb.WriteByte('<')
	b.sb.WriteString(tag)
	for _, a := range attrs {
		b.sb.WriteByte(' ')
		b.sb.WriteString(a.Key)
		if a.Value != "" {
			b.sb.WriteString(`="`)
			escapeTo(&b.sb, a.Value)
			b.sb.WriteByte('"')
		}
	}
}

// Close pops the innermost open element and writes its closing tag.
// Closing with nothing open is a no-op.
func (b *Builder) Close() {
	if len(b.open) == 0 {
		return
	}
	tag := b.open[len(b.open)-1]
	b.open = b.open[:len(b.open)-1]
	b.sb.WriteString("</")
	b.sb.WriteString(tag)
	b.sb.WriteByte('>')
}

// CloseAll closes every open element, innermost first.
func (b *Builder) CloseAll() {
	for len(b.open) > 0 {
		b.Close()
	}
}

// Text writes escaped character data.
func (b *Builder) Text(s string) {
	escapeTo(&b.sb, s)
}

// Raw writes a pre-rendered fragment verbatim.
func (b *Builder) Raw(s string) {
	b.sb.WriteString(s)
}

// Comment writes an HTML comment; "--" sequences inside the body are
// broken up so the comment cannot terminate early.
func (b *Builder) Comment(s string) {
	b.sb.WriteString("<!-- ")
	b.sb.WriteString(strings.ReplaceAll(s, "--", "- -"))
	b.sb.WriteString(" -->")
}

// Depth returns the number of currently open elements.
func (b *Builder) Depth() int {
	return len(b.open)
}

// String closes nothing and returns the markup accumulated so far.
func (b *Builder) String() string {
	return b.sb.String()
}
