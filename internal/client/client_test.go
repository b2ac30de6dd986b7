package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riverfjs/notionify-go/internal/types"
)

const (
	rootID   = "46f8638c25a84ccd9d926e42bdb5535e"
	childA   = "844b3fdf56884f6c91e897b4f0e436cd"
	childB   = "c3e9c471d4b347dcab6a6ecd4dda161a"
	sharedID = "55d7294249f649f98adee3d049f682e5"
	leafID   = "100116e20a4749038b794ac9cc3a7870"
)

func testOptions(serverURL string, c *http.Client) Options {
	return Options{
		BaseURL:           serverURL,
		HTTPClient:        c,
		Concurrency:       4,
		RequestsPerSecond: 10000,
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffCap:        2 * time.Millisecond,
	}
}

func paragraphJSON(id string, hasChildren bool) map[string]any {
	return map[string]any{
		"object":       "block",
		"id":           id,
		"type":         "paragraph",
		"has_children": hasChildren,
		"paragraph": map[string]any{
			"rich_text": []any{map[string]any{
				"type":        "text",
				"plain_text":  "x",
				"annotations": map[string]any{"color": "default"},
				"text":        map[string]any{"content": "x"},
			}},
		},
	}
}

func listJSON(cursor *string, blocks ...map[string]any) map[string]any {
	results := make([]any, 0, len(blocks))
	for _, b := range blocks {
		results = append(results, b)
	}
	out := map[string]any{
		"object":      "list",
		"results":     results,
		"has_more":    cursor != nil,
		"next_cursor": nil,
	}
	if cursor != nil {
		out["next_cursor"] = *cursor
	}
	return out
}

func pageJSON(id, title string) map[string]any {
	return map[string]any{
		"object":           "page",
		"id":               id,
		"created_time":     "2024-01-01T00:00:00.000Z",
		"last_edited_time": "2024-01-02T00:00:00.000Z",
		"url":              "https://www.notion.so/" + id,
		"properties": map[string]any{
			"Name": map[string]any{
				"id":   "title",
				"type": "title",
				"title": []any{map[string]any{
					"type":        "text",
					"plain_text":  title,
					"annotations": map[string]any{"color": "default"},
					"text":        map[string]any{"content": title},
				}},
			},
		},
	}
}

func pageListJSON(cursor *string, pages ...map[string]any) map[string]any {
	results := make([]any, 0, len(pages))
	for _, p := range pages {
		results = append(results, p)
	}
	out := map[string]any{
		"object":      "list",
		"results":     results,
		"has_more":    cursor != nil,
		"next_cursor": nil,
	}
	if cursor != nil {
		out["next_cursor"] = *cursor
	}
	return out
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

// counter 按路径统计请求次数
type counter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (c *counter) inc(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hits == nil {
		c.hits = map[string]int{}
	}
	c.hits[path]++
	return c.hits[path]
}

func (c *counter) get(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[path]
}

func TestFetchTreeAssemblesNestedChildren(t *testing.T) {
	hits := &counter{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.inc(r.URL.Path)
		switch r.URL.Path {
		case "/blocks/" + rootID:
			writeJSON(t, w, 200, paragraphJSON(rootID, true))
		case "/blocks/" + rootID + "/children":
			writeJSON(t, w, 200, listJSON(nil, paragraphJSON(childA, true), paragraphJSON(childB, false)))
		case "/blocks/" + childA + "/children":
			writeJSON(t, w, 200, listJSON(nil, paragraphJSON(leafID, false)))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			writeJSON(t, w, 404, map[string]any{"code": "object_not_found", "message": "nope"})
		}
	}))
	defer srv.Close()

	c := New("secret", testOptions(srv.URL, srv.Client()))
	root, err := c.FetchTree(context.Background(), rootID)
	if err != nil {
		t.Fatalf("FetchTree: %v", err)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.Children))
	}
	if root.Children[0].ID != types.NotionID(childA) || root.Children[1].ID != types.NotionID(childB) {
		t.Errorf("children out of order: %v, %v", root.Children[0].ID, root.Children[1].ID)
	}
	if len(root.Children[0].Children) != 1 || root.Children[0].Children[0].ID != types.NotionID(leafID) {
		t.Errorf("nested child missing: %+v", root.Children[0].Children)
	}
}

func TestFetchTreeSendsHeadersAndPageSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Notion-Version"); got != "2022-06-28" {
			t.Errorf("Notion-Version = %q", got)
		}
		if strings.HasSuffix(r.URL.Path, "/children") {
			if got := r.URL.Query().Get("page_size"); got != "100" {
				t.Errorf("page_size = %q", got)
			}
		}
		if r.URL.Path == "/blocks/"+rootID {
			writeJSON(t, w, 200, paragraphJSON(rootID, true))
			return
		}
		writeJSON(t, w, 200, listJSON(nil))
	}))
	defer srv.Close()

	c := New("secret", testOptions(srv.URL, srv.Client()))
	if _, err := c.FetchTree(context.Background(), rootID); err != nil {
		t.Fatalf("FetchTree: %v", err)
	}
}

func TestFetchChildrenFollowsCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blocks/"+rootID+"/children" {
			t.Errorf("unexpected request %s", r.URL.Path)
		}
		switch r.URL.Query().Get("start_cursor") {
		case "":
			cursor := "page-two"
			writeJSON(t, w, 200, listJSON(&cursor, paragraphJSON(childA, false)))
		case "page-two":
			writeJSON(t, w, 200, listJSON(nil, paragraphJSON(childB, false)))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("start_cursor"))
		}
	}))
	defer srv.Close()

	c := New("secret", testOptions(srv.URL, srv.Client()))
	blocks, err := c.FetchChildren(context.Background(), rootID)
	if err != nil {
		t.Fatalf("FetchChildren: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if blocks[0].ID != types.NotionID(childA) || blocks[1].ID != types.NotionID(childB) {
		t.Errorf("page order not preserved: %v, %v", blocks[0].ID, blocks[1].ID)
	}
}

func TestFetchChildrenDedupsSharedSubtree(t *testing.T) {
	hits := &counter{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.inc(r.URL.Path)
		switch r.URL.Path {
		case "/blocks/" + rootID + "/children":
			writeJSON(t, w, 200, listJSON(nil, paragraphJSON(childA, true), paragraphJSON(childB, true)))
		case "/blocks/" + childA + "/children", "/blocks/" + childB + "/children":
			writeJSON(t, w, 200, listJSON(nil, paragraphJSON(sharedID, true)))
		case "/blocks/" + sharedID + "/children":
			// 两个父分支引用同一个子树，这里只允许到达一次
			writeJSON(t, w, 200, listJSON(nil, paragraphJSON(leafID, false)))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New("secret", testOptions(srv.URL, srv.Client()))
	blocks, err := c.FetchChildren(context.Background(), rootID)
	if err != nil {
		t.Fatalf("FetchChildren: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if got := hits.get("/blocks/" + sharedID + "/children"); got != 1 {
		t.Errorf("shared subtree fetched %d times, want 1", got)
	}
	for _, b := range blocks {
		if len(b.Children) != 1 || len(b.Children[0].Children) != 1 {
			t.Errorf("subtree not assembled under %s", b.ID)
		}
	}
}

func TestFetchDatabasePagesFollowsCursorAndAssemblesTrees(t *testing.T) {
	dbID := rootID
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/databases/" + dbID + "/query":
			if r.Method != http.MethodPost {
				t.Errorf("query method = %s, want POST", r.Method)
			}
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %q", got)
			}
			var body struct {
				StartCursor string `json:"start_cursor"`
				PageSize    int    `json:"page_size"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode query body: %v", err)
			}
			if body.PageSize != 100 {
				t.Errorf("page_size = %d, want 100", body.PageSize)
			}
			switch body.StartCursor {
			case "":
				cursor := "batch-two"
				writeJSON(t, w, 200, pageListJSON(&cursor, pageJSON(childA, "First")))
			case "batch-two":
				writeJSON(t, w, 200, pageListJSON(nil, pageJSON(childB, "Second")))
			default:
				t.Errorf("unexpected cursor %q", body.StartCursor)
			}
		case "/blocks/" + childA + "/children", "/blocks/" + childB + "/children":
			writeJSON(t, w, 200, listJSON(nil, paragraphJSON(leafID, false)))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			writeJSON(t, w, 404, map[string]any{"code": "object_not_found", "message": "nope"})
		}
	}))
	defer srv.Close()

	c := New("secret", testOptions(srv.URL, srv.Client()))
	pages, err := c.FetchDatabasePages(context.Background(), types.NotionID(dbID))
	if err != nil {
		t.Fatalf("FetchDatabasePages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if pages[0].ID != types.NotionID(childA) || pages[1].ID != types.NotionID(childB) {
		t.Errorf("batch order not preserved: %v, %v", pages[0].ID, pages[1].ID)
	}
	if got := types.PlainText(pages[0].Title()); got != "First" {
		t.Errorf("first page title = %q, want %q", got, "First")
	}
	for _, p := range pages {
		if len(p.Children) != 1 || p.Children[0].ID != types.NotionID(leafID) {
			t.Errorf("page %s block tree not assembled: %+v", p.ID, p.Children)
		}
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	hits := &counter{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.inc(r.URL.Path) == 1 {
			writeJSON(t, w, 429, map[string]any{"code": "rate_limited", "message": "slow down"})
			return
		}
		writeJSON(t, w, 200, listJSON(nil, paragraphJSON(childA, false)))
	}))
	defer srv.Close()

	c := New("secret", testOptions(srv.URL, srv.Client()))
	blocks, err := c.FetchChildren(context.Background(), rootID)
	if err != nil {
		t.Fatalf("FetchChildren: %v", err)
	}
	if len(blocks) != 1 {
		t.Errorf("got %d blocks, want 1", len(blocks))
	}
	if got := hits.get("/blocks/" + rootID + "/children"); got != 2 {
		t.Errorf("got %d requests, want 2", got)
	}
}

func TestPermanentFailureDoesNotRetry(t *testing.T) {
	hits := &counter{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.inc(r.URL.Path)
		writeJSON(t, w, 404, map[string]any{"code": "object_not_found", "message": "gone"})
	}))
	defer srv.Close()

	c := New("secret", testOptions(srv.URL, srv.Client()))
	_, err := c.FetchChildren(context.Background(), rootID)
	if err == nil {
		t.Fatal("expected error")
	}
	if Transient(err) {
		t.Errorf("object_not_found should be permanent: %v", err)
	}
	var apiErr *types.Error
	if !errors.As(err, &apiErr) || apiErr.Code != types.CodeObjectNotFound {
		t.Errorf("expected wrapped *types.Error, got %v", err)
	}
	if got := hits.get("/blocks/" + rootID + "/children"); got != 1 {
		t.Errorf("got %d requests, want 1", got)
	}
}

func TestTransientFailureExhaustsAttempts(t *testing.T) {
	hits := &counter{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.inc(r.URL.Path)
		writeJSON(t, w, 503, map[string]any{"code": "service_unavailable", "message": "down"})
	}))
	defer srv.Close()

	c := New("secret", testOptions(srv.URL, srv.Client()))
	_, err := c.FetchChildren(context.Background(), rootID)
	if err == nil {
		t.Fatal("expected error")
	}
	if !Transient(err) {
		t.Errorf("service_unavailable should stay transient: %v", err)
	}
	if got := hits.get("/blocks/" + rootID + "/children"); got != 3 {
		t.Errorf("got %d requests, want MaxAttempts=3", got)
	}
}

func TestMalformedResponseIsPermanent(t *testing.T) {
	hits := &counter{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.inc(r.URL.Path)
		w.WriteHeader(200)
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := New("secret", testOptions(srv.URL, srv.Client()))
	_, err := c.FetchChildren(context.Background(), rootID)
	if err == nil {
		t.Fatal("expected error")
	}
	if Transient(err) {
		t.Errorf("malformed body should be permanent: %v", err)
	}
	if got := hits.get("/blocks/" + rootID + "/children"); got != 1 {
		t.Errorf("got %d requests, want 1", got)
	}
}
