package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ljbook/internal/assemble"
	"github.com/starford/ljbook/internal/index"
	"github.com/starford/ljbook/internal/models"
	"github.com/starford/ljbook/internal/postservice"
	"github.com/starford/ljbook/internal/storage"
	"github.com/starford/ljbook/internal/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testServer(t *testing.T) (*Server, []string, storage.Provider) {
	t.Helper()

	_, store := testutil.TestPosts(t)
	_, books := testutil.TestPosts(t)
	db := testutil.TestDB(t)

	var paths []string
	for _, p := range []models.Post{
		models.NewPost("https://test.livejournal.com/10.html", "Moscow", models.NewDate(2013, time.May, 4), []string{"travel"}, "Red square at dawn."),
		models.NewPost("https://test.livejournal.com/11.html", "Kazan", models.NewDate(2013, time.May, 9), []string{"travel", "food"}, "Chak-chak recipe."),
	} {
		paths = append(paths, testutil.WritePost(t, store, p))
	}
	if _, err := index.Sync(db, store, discard); err != nil {
		t.Fatal(err)
	}

	asm := assemble.New(books, assemble.Options{BlogURL: "https://test.livejournal.com"}, discard)
	srv := New(postservice.NewService(store, db, asm, discard), "test")
	return srv, paths, books
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct call helper, so the handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_posts":
		result, err = srv.searchPosts(ctx, req)
	case "read_post":
		result, err = srv.readPost(ctx, req)
	case "list_posts":
		result, err = srv.listPosts(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	case "build_book":
		result, err = srv.buildBook(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestReadPost(t *testing.T) {
	srv, paths, _ := testServer(t)

	r := callTool(t, srv, "read_post", map[string]any{"path": paths[1]})
	if r.IsError {
		t.Fatalf("read_post error: %s", resultText(r))
	}
	var post postservice.PostDetail
	if err := json.Unmarshal([]byte(resultText(r)), &post); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if post.Title != "Kazan" || post.Body != "Chak-chak recipe." {
		t.Errorf("post = %+v", post)
	}
	if post.Prev == nil || post.Prev.Path != paths[0] {
		t.Errorf("prev = %+v", post.Prev)
	}
	if post.Next != nil {
		t.Errorf("next = %+v, want none", post.Next)
	}
}

func TestReadPostMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_post", map[string]any{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing post")
	}
}

func TestListPosts(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "list_posts", map[string]any{"tag": "food"})
	var resp struct {
		Posts []postservice.PostListItem `json:"posts"`
		Total int                        `json:"total"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Posts[0].Title != "Kazan" {
		t.Errorf("resp = %+v", resp)
	}

	r = callTool(t, srv, "list_posts", map[string]any{"year": float64(2012)})
	resp.Posts, resp.Total = nil, 0
	_ = json.Unmarshal([]byte(resultText(r)), &resp)
	if resp.Total != 0 {
		t.Errorf("year 2012 total = %d", resp.Total)
	}
}

func TestSearchAndTags(t *testing.T) {
	srv, paths, _ := testServer(t)

	r := callTool(t, srv, "search_posts", map[string]any{"query": "dawn"})
	if !strings.Contains(resultText(r), paths[0]) {
		t.Errorf("search result = %s", resultText(r))
	}

	r = callTool(t, srv, "search_posts", map[string]any{})
	if !r.IsError {
		t.Error("expected error without query")
	}

	r = callTool(t, srv, "list_tags", map[string]any{})
	var tags []index.TagCount
	if err := json.Unmarshal([]byte(resultText(r)), &tags); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tags) != 2 || tags[1].Tag != "travel" || tags[1].Count != 2 {
		t.Errorf("tags = %+v", tags)
	}
}

func TestBuildBook(t *testing.T) {
	srv, _, books := testServer(t)

	r := callTool(t, srv, "build_book", map[string]any{"year": float64(2013)})
	if r.IsError {
		t.Fatalf("build_book error: %s", resultText(r))
	}
	var res assemble.Result
	_ = json.Unmarshal([]byte(resultText(r)), &res)
	if res.Path != "test_posts_2013.epub" || res.Posts != 2 {
		t.Errorf("result = %+v", res)
	}
	if ok, _ := books.Exists(res.Path); !ok {
		t.Error("book not written")
	}

	r = callTool(t, srv, "build_book", map[string]any{"year": float64(2020)})
	if !r.IsError || resultText(r) != "no posts for 2020" {
		t.Errorf("empty year result = %q", resultText(r))
	}
}

func TestPostFormatResource(t *testing.T) {
	srv, _, _ := testServer(t)
	contents, err := srv.readPostFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok || text.URI != PostFormatURI || !strings.Contains(text.Text, "front matter") {
		t.Errorf("resource = %+v", contents[0])
	}
}
