package postfile

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/ljbook/internal/apperr"
	"github.com/starford/ljbook/internal/models"
)

func TestEncodeDecode(t *testing.T) {
	p := models.NewPost(
		"https://evo-lutio.livejournal.com/12345.html",
		"Заметки: часть 1",
		models.NewDate(2014, time.March, 1),
		[]string{"психология", "a"},
		"First paragraph.\n\nSecond *paragraph*.",
	)
	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(string(data), "---\ntitle:") {
		t.Errorf("unexpected header: %q", data)
	}
	if !strings.Contains(string(data), "tags: a, психология") {
		t.Errorf("tags not comma-joined: %q", data)
	}

	got, err := Decode("x.md", data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.URL != p.URL || got.Title != p.Title || got.PublishedAt != p.PublishedAt {
		t.Errorf("decoded = %+v, want %+v", got, p)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "a" {
		t.Errorf("tags = %v", got.Tags)
	}
	if got.Body != p.Body {
		t.Errorf("body = %q", got.Body)
	}
}

func TestEncode_NoTagsWritesNone(t *testing.T) {
	data, err := Encode(models.NewPost("https://x.livejournal.com/1.html", "T", models.NewDate(2014, 1, 1), nil, "b"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "tags: None") {
		t.Errorf("missing None tags marker: %q", data)
	}
	p, err := Decode("x.md", data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(p.Tags) != 0 {
		t.Errorf("tags = %v, want empty", p.Tags)
	}
}

func TestDecode_OriginalFormat(t *testing.T) {
	input := []byte("---\ntitle: Hello\ndate: 2014-06-15\nurl: https://x.livejournal.com/2.html\ntags: b, a\n---\n\nBody text.")
	p, err := Decode("2014-06-15_Hello.md", input)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.PublishedAt != models.NewDate(2014, time.June, 15) {
		t.Errorf("date = %v", p.PublishedAt)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "a" || p.Tags[1] != "b" {
		t.Errorf("tags = %v", p.Tags)
	}
	if p.Body != "Body text." {
		t.Errorf("body = %q", p.Body)
	}
}

func TestDecode_YAMLListTags(t *testing.T) {
	input := []byte("---\ntitle: T\ndate: \"2014-06-15\"\nurl: https://x.livejournal.com/2.html\ntags:\n  - go\n  - lj\n---\nB\n")
	p, err := Decode("t.md", input)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "go" {
		t.Errorf("tags = %v", p.Tags)
	}
}

func TestDecode_Errors(t *testing.T) {
	cases := map[string]string{
		"no front matter": "# just markdown\n",
		"unterminated":    "---\ntitle: x\n",
		"no url":          "---\ntitle: x\ndate: 2014-01-01\n---\nb",
		"bad date":        "---\ntitle: x\ndate: soon\nurl: https://x/1.html\n---\nb",
		"invalid yaml":    "---\n: invalid: yaml: {{{\n---\nb",
	}
	for name, input := range cases {
		_, err := Decode(name, []byte(input))
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if !apperr.IsParse(err) {
			t.Errorf("%s: error %v is not a ParseError", name, err)
		}
	}
}

func TestDecode_UntitledFallback(t *testing.T) {
	p, err := Decode("t.md", []byte("---\ndate: 2014-01-01\nurl: https://x/1.html\n---\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Title != "Untitled" {
		t.Errorf("title = %q", p.Title)
	}
}

func TestFileName(t *testing.T) {
	p := models.NewPost("https://x.livejournal.com/98765.html", "Hello, World! Again", models.NewDate(2014, 3, 1), nil, "")
	if got := FileName(p); got != "2014-03-01_98765-Hello-World-Again.md" {
		t.Errorf("FileName = %q", got)
	}

	p = models.NewPost("https://x.livejournal.com/98765.html", "???", models.NewDate(2014, 3, 1), nil, "")
	if got := FileName(p); got != "2014-03-01_98765.md" {
		t.Errorf("FileName without safe title = %q", got)
	}
}

func TestSafeTitle_KeepsCyrillic(t *testing.T) {
	if got := SafeTitle("Привет, мир!"); got != "Привет-мир" {
		t.Errorf("SafeTitle = %q", got)
	}
}
