package types

import (
	"encoding/json"
	"testing"
)

func TestParseNotionID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected NotionID
		wantErr  bool
	}{
		{"dashed", "46f8638c-25a8-4ccd-9d92-6e42bdb5535e", "46f8638c25a84ccd9d926e42bdb5535e", false},
		{"dashless", "46f8638c25a84ccd9d926e42bdb5535e", "46f8638c25a84ccd9d926e42bdb5535e", false},
		{"uppercase normalized", "46F8638C25A84CCD9D926E42BDB5535E", "46f8638c25a84ccd9d926e42bdb5535e", false},
		{"too short", "46f8638c", "", true},
		{"not hex", "46f8638c25a84ccd9d926e42bdb5535g", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNotionID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseNotionID(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNotionID(%q) error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseNotionID(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBlockUnmarshal(t *testing.T) {
	raw := `{
		"object": "block",
		"id": "bf0128fd-3b85-4d85-aada-e500dcbcda35",
		"created_time": "2021-11-13T17:35:00.000Z",
		"last_edited_time": "2021-11-13T17:38:00.000Z",
		"has_children": false,
		"archived": false,
		"type": "code",
		"code": {
			"rich_text": [{
				"type": "text",
				"plain_text": "fn main() {}",
				"annotations": {"bold": false, "italic": false, "strikethrough": false, "underline": false, "code": false, "color": "default"},
				"text": {"content": "fn main() {}"}
			}],
			"language": "rust"
		}
	}`
	var block Block
	if err := json.Unmarshal([]byte(raw), &block); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if block.ID != "bf0128fd3b854d85aadae500dcbcda35" {
		t.Errorf("ID = %q, want dashless form", block.ID)
	}
	if block.Type != "code" || block.Code == nil {
		t.Fatalf("code payload missing: type=%q", block.Type)
	}
	if block.Code.Language != "rust" {
		t.Errorf("Language = %q, want rust", block.Code.Language)
	}
	if got := PlainText(block.Code.RichText); got != "fn main() {}" {
		t.Errorf("PlainText = %q", got)
	}
}

func TestChildPageTitleAsRichText(t *testing.T) {
	raw := `{
		"object": "block",
		"id": "46f8638c-25a8-4ccd-9d92-6e42bdb5535e",
		"type": "child_page",
		"has_children": true,
		"child_page": {"title": "My Page"}
	}`
	var block Block
	if err := json.Unmarshal([]byte(raw), &block); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if block.ChildPage == nil || block.ChildPage.Title != "My Page" {
		t.Fatalf("child_page payload missing: %+v", block.ChildPage)
	}
	if got := PlainText(block.RichTextContent()); got != "My Page" {
		t.Errorf("RichTextContent plain text = %q, want %q", got, "My Page")
	}
}

func TestPageTitle(t *testing.T) {
	raw := `{
		"object": "page",
		"id": "46f8638c-25a8-4ccd-9d92-6e42bdb5535e",
		"properties": {
			"Tags": {"id": "abc", "type": "multi_select"},
			"Name": {
				"id": "title",
				"type": "title",
				"title": [{
					"type": "text",
					"plain_text": "A post",
					"annotations": {"color": "default"},
					"text": {"content": "A post"}
				}]
			}
		}
	}`
	var page Page
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := PlainText(page.Title()); got != "A post" {
		t.Errorf("Title plain text = %q, want %q", got, "A post")
	}
	empty := Page{Properties: map[string]PageProperty{"Tags": {Type: "multi_select"}}}
	if empty.Title() != nil {
		t.Errorf("page without title column should return nil")
	}
}

func TestBlockUnknownTypePreserved(t *testing.T) {
	raw := `{
		"object": "block",
		"id": "eb39a20e-1036-4469-b750-a9df8f4f18df",
		"type": "table_of_contents",
		"table_of_contents": {}
	}`
	var block Block
	if err := json.Unmarshal([]byte(raw), &block); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if block.Type != "table_of_contents" {
		t.Errorf("Type = %q", block.Type)
	}
	if block.RichTextContent() != nil {
		t.Errorf("unknown block should carry no rich text")
	}
}

func TestListKind(t *testing.T) {
	tests := []struct {
		blockType string
		expected  ListKind
	}{
		{"bulleted_list_item", ListBulleted},
		{"to_do", ListBulleted},
		{"numbered_list_item", ListNumbered},
		{"paragraph", ListNone},
		{"heading_1", ListNone},
		{"table_of_contents", ListNone},
	}
	for _, tt := range tests {
		b := Block{Type: tt.blockType}
		if got := b.ListKind(); got != tt.expected {
			t.Errorf("ListKind(%q) = %v, want %v", tt.blockType, got, tt.expected)
		}
	}
}

func TestTextLinkInternal(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		page  NotionID
		block string
		ok    bool
	}{
		{"external", "https://example.com", "", "", false},
		{"page only", "/46f8638c25a84ccd9d926e42bdb5535e", "46f8638c25a84ccd9d926e42bdb5535e", "", true},
		{"page with block", "/46f8638c25a84ccd9d926e42bdb5535e#abc123", "46f8638c25a84ccd9d926e42bdb5535e", "abc123", true},
		{"bad page id", "/short", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := TextLink{URL: tt.url}
			page, block, ok := link.Internal()
			if ok != tt.ok || page != tt.page || block != tt.block {
				t.Errorf("Internal() = (%q, %q, %v), want (%q, %q, %v)", page, block, ok, tt.page, tt.block, tt.ok)
			}
		})
	}
}

func TestColorCSSClass(t *testing.T) {
	tests := []struct {
		color    Color
		expected string
	}{
		{"default", ""},
		{"", ""},
		{"red", "color-red"},
		{"blue_background", "color-blue-background"},
	}
	for _, tt := range tests {
		if got := tt.color.CSSClass(); got != tt.expected {
			t.Errorf("CSSClass(%q) = %q, want %q", tt.color, got, tt.expected)
		}
	}
}

func TestErrorCodeTransient(t *testing.T) {
	transient := []ErrorCode{CodeRateLimited, CodeInternalServerError, CodeServiceUnavailable, CodeConflictError, CodeDatabaseConnectionUnavailable}
	for _, code := range transient {
		if !code.Transient() {
			t.Errorf("%s should be transient", code)
		}
	}
	permanent := []ErrorCode{CodeObjectNotFound, CodeUnauthorized, CodeRestrictedResource, CodeValidationError, CodeInvalidJSON}
	for _, code := range permanent {
		if code.Transient() {
			t.Errorf("%s should be permanent", code)
		}
	}
}

func TestChromaName(t *testing.T) {
	tests := []struct {
		lang     Language
		expected string
	}{
		{"rust", "rust"},
		{"shell", "bash"},
		{"f#", "fsharp"},
		{"markup", "html"},
		{LangPlainText, ""},
		{LangMermaid, ""},
	}
	for _, tt := range tests {
		if got := tt.lang.ChromaName(); got != tt.expected {
			t.Errorf("ChromaName(%q) = %q, want %q", tt.lang, got, tt.expected)
		}
	}
}
