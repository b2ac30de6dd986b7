// notionify 命令行：把一个 Notion 页面导出为静态 HTML
//
// 用法：
//
//	NOTION_TOKEN=secret notionify [flags] <document-id>
//
// 输出目录下生成 index.html，页面引用的媒体下载到 media/ 子目录。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	notionify "github.com/riverfjs/notionify-go"
)

func main() {
	head := flag.String("head", "", "partial HTML file appended to the bottom of <head>")
	output := flag.String("output", ".", "directory to write generated files into")
	anchors := flag.String("anchors", "none", "heading anchor position: none, before or after")
	anchorIcon := flag.String("anchor-icon", "#", "icon text for heading anchors")
	pages := flag.String("pages", "", "comma separated ids of pages rendered into the same HTML page")
	linkMap := flag.String("link-map", "", "comma separated page-id:path pairs used to rewrite internal links")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: notionify [flags] <document-id>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *head, *output, *anchors, *anchorIcon, *pages, *linkMap); err != nil {
		fmt.Fprintln(os.Stderr, "notionify:", err)
		os.Exit(1)
	}
}

func run(documentID, headPath, output, anchors, anchorIcon, pages, linkMap string) error {
	token := os.Getenv("NOTION_TOKEN")
	if token == "" {
		return fmt.Errorf("missing NOTION_TOKEN env variable")
	}

	id, err := notionify.ParseID(documentID)
	if err != nil {
		return err
	}

	head := ""
	if headPath != "" {
		data, err := os.ReadFile(headPath)
		if err != nil {
			return fmt.Errorf("read head partial: %w", err)
		}
		head = string(data)
	}

	position, err := parseAnchors(anchors)
	if err != nil {
		return err
	}

	currentPages := []notionify.NotionID{id}
	if pages != "" {
		for _, raw := range strings.Split(pages, ",") {
			page, err := notionify.ParseID(strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("invalid page id in -pages: %w", err)
			}
			currentPages = append(currentPages, page)
		}
	}

	links, err := parseLinkMap(linkMap)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, err := notionify.Export(ctx, documentID,
		notionify.WithToken(token),
		notionify.WithFullPage(head),
		notionify.WithHeadingAnchors(position, anchorIcon),
		notionify.WithCurrentPages(currentPages...),
		notionify.WithLinkMap(links),
	)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return err
	}
	indexPath := filepath.Join(output, "index.html")
	if err := os.WriteFile(indexPath, []byte(doc.HTML), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", indexPath, err)
	}

	if err := doc.DownloadAssets(ctx, output); err != nil {
		return fmt.Errorf("download assets: %w", err)
	}

	fmt.Printf("wrote %s (%d words, %d assets)\n", indexPath, doc.WordCount(), len(doc.Assets))
	return nil
}

func parseAnchors(s string) (notionify.AnchorPosition, error) {
	switch s {
	case "none":
		return notionify.AnchorNone, nil
	case "before":
		return notionify.AnchorBefore, nil
	case "after":
		return notionify.AnchorAfter, nil
	default:
		return notionify.AnchorNone, fmt.Errorf("invalid -anchors %q: expected none, before or after", s)
	}
}

// parseLinkMap 解析 "page-id:path,page-id:path" 形式的映射
func parseLinkMap(s string) (map[notionify.NotionID]string, error) {
	links := map[notionify.NotionID]string{}
	if s == "" {
		return links, nil
	}
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		id, path, ok := strings.Cut(entry, ":")
		if !ok || path == "" {
			return nil, fmt.Errorf("invalid -link-map entry %q: expected page-id:path", entry)
		}
		page, err := notionify.ParseID(id)
		if err != nil {
			return nil, fmt.Errorf("invalid -link-map entry %q: %w", entry, err)
		}
		links[page] = path
	}
	return links, nil
}
