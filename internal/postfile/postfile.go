// Package postfile reads and writes the on-disk post format: a YAML front
// matter block (title, date, url, tags) followed by a Markdown body.
package postfile

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/starford/ljbook/internal/apperr"
	"github.com/starford/ljbook/internal/models"
)

// Ext is the extension of post files.
const Ext = ".md"

const (
	delim       = "---"
	noTags      = "None"
	maxTitleLen = 80
)

var (
	postIDRe    = regexp.MustCompile(`(\d+)\.html$`)
	unsafeRe    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	separatorRe = regexp.MustCompile(`[-\s]+`)
)

type frontMatter struct {
	Title string    `yaml:"title"`
	Date  dateField `yaml:"date"`
	URL   string    `yaml:"url"`
	Tags  tagList   `yaml:"tags"`
}

// dateField keeps the raw scalar so unquoted YAML timestamps survive as text.
type dateField string

func (d *dateField) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("date: expected a scalar")
	}
	*d = dateField(value.Value)
	return nil
}

// tagList is written as a comma-joined scalar ("None" when empty). A YAML
// sequence is accepted on read as well.
type tagList []string

func (t tagList) MarshalYAML() (any, error) {
	if len(t) == 0 {
		return noTags, nil
	}
	return strings.Join(t, ", "), nil
}

func (t *tagList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.ShortTag() == "!!null" || strings.TrimSpace(value.Value) == noTags {
			*t = nil
			return nil
		}
		*t = strings.Split(value.Value, ",")
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*t = items
		return nil
	default:
		return fmt.Errorf("tags: unexpected YAML node kind %d", value.Kind)
	}
}

// Encode renders p in the post file format.
func Encode(p models.Post) ([]byte, error) {
	fm, err := yaml.Marshal(frontMatter{
		Title: p.Title,
		Date:  dateField(p.PublishedAt.String()),
		URL:   p.URL,
		Tags:  tagList(p.Tags),
	})
	if err != nil {
		return nil, fmt.Errorf("postfile: encode %s: %w", p.URL, err)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(fm)
	buf.WriteString(delim + "\n\n")
	buf.WriteString(strings.TrimSpace(p.Body))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// Decode reconstructs a post from file contents. name identifies the file in
// errors. A file without front matter, url or a valid date is a ParseError.
func Decode(name string, data []byte) (models.Post, error) {
	block, body, ok := splitFrontmatter(data)
	if !ok {
		return models.Post{}, &apperr.ParseError{URL: name, Reason: "missing front matter"}
	}

	var fm frontMatter
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return models.Post{}, &apperr.ParseError{URL: name, Reason: "invalid front matter: " + err.Error()}
	}
	if strings.TrimSpace(fm.URL) == "" {
		return models.Post{}, &apperr.ParseError{URL: name, Reason: "front matter has no url"}
	}
	date, err := models.ParseDate(string(fm.Date))
	if err != nil {
		return models.Post{}, &apperr.ParseError{URL: name, Reason: "front matter has no valid date"}
	}
	title := fm.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}

	return models.NewPost(fm.URL, title, date, fm.Tags, body), nil
}

// splitFrontmatter separates the YAML block between the leading delimiters
// from the body.
func splitFrontmatter(data []byte) ([]byte, string, bool) {
	trimmed := bytes.TrimLeft(data, "\ufeff\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", false
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}

	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	body := strings.TrimSpace(string(after))
	return block, body, true
}

// FileName returns the file name a post is stored under:
// <date>_<id>-<safe-title>.md, where id is the numeric post id from the URL.
func FileName(p models.Post) string {
	var b strings.Builder
	b.WriteString(p.PublishedAt.String())

	id := ""
	if m := postIDRe.FindStringSubmatch(p.URL); m != nil {
		id = m[1]
	}
	title := SafeTitle(p.Title)

	switch {
	case id != "" && title != "":
		b.WriteString("_" + id + "-" + title)
	case id != "":
		b.WriteString("_" + id)
	case title != "":
		b.WriteString("_" + title)
	}
	b.WriteString(Ext)
	return b.String()
}

// SafeTitle reduces a title to letters, digits, underscores and single
// dashes, capped at a fixed rune length.
func SafeTitle(title string) string {
	s := unsafeRe.ReplaceAllString(title, "")
	s = separatorRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-_")
	if utf8.RuneCountInString(s) > maxTitleLen {
		s = strings.TrimRight(string([]rune(s)[:maxTitleLen]), "-_")
	}
	return s
}
