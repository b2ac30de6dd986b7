package notionify

import (
	"strings"
	"testing"

	"github.com/riverfjs/notionify-go/internal/types"
)

func TestWithConfigAcceptsZeroValue(t *testing.T) {
	id := NotionID("46f8638c25a84ccd9d926e42bdb5535e")
	opts := applyOptions(WithConfig(&RenderConfig{}), WithCurrentPages(id))
	if _, ok := opts.Config.CurrentPages[id]; !ok {
		t.Errorf("CurrentPages missing %s", id)
	}
	if opts.Config.LinkMap == nil {
		t.Errorf("LinkMap should be initialized")
	}
}

func TestRenderWithZeroValueConfig(t *testing.T) {
	target := NotionID("844b3fdf56884f6c91e897b4f0e436cd")
	root := &Block{
		ID:        NotionID("46f8638c25a84ccd9d926e42bdb5535e"),
		Type:      "child_page",
		ChildPage: &types.ChildPagePayload{Title: "Home"},
		Children: []Block{{
			ID:   NotionID("c3e9c471d4b347dcab6a6ecd4dda161a"),
			Type: "paragraph",
			Paragraph: &types.TextPayload{RichText: []RichText{{
				Type:      "text",
				PlainText: "see",
				Text:      &types.TextContent{Content: "see", Link: &types.TextLink{URL: "/" + target.String()}},
			}}},
		}},
	}

	doc, err := Render(root, WithConfig(&RenderConfig{}), WithCurrentPages(target))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(doc.HTML, `href="#`+target.String()+`"`) {
		t.Errorf("link to a current page should be fragment-only:\n%s", doc.HTML)
	}
}
