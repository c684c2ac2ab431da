package mcpserver

// PostFormat describes how archived posts are stored on disk.
const PostFormat = `# Post File Format

Every scraped post is stored as one UTF-8 Markdown file under the journal's
directory, named ` + "`" + `<date>_<id>-<safe-title>.md` + "`" + `:

- ` + "`" + `<date>` + "`" + ` is the publication day, ` + "`" + `YYYY-MM-DD` + "`" + `.
- ` + "`" + `<id>` + "`" + ` is the numeric post id from the post URL.
- ` + "`" + `<safe-title>` + "`" + ` keeps letters, digits, underscores and single dashes,
  at most 80 characters.

## Structure

` + "```" + `markdown
---
title: Post title
date: "2014-03-05"
url: https://example.livejournal.com/12345.html
tags: travel, life        # comma-separated; "None" when the post has no tags
---

Post body converted from HTML to Markdown.
` + "```" + `

## Rules

1. The front matter block must open the file.
2. ` + "`" + `url` + "`" + ` and a valid ` + "`" + `date` + "`" + ` are required; files without them are skipped.
3. A missing title reads as "Untitled".
4. ` + "`" + `tags` + "`" + ` may also be a YAML list.
5. When two files carry the same ` + "`" + `url` + "`" + `, the later file in path order wins.

## Books

Books are EPUB 3 files named ` + "`" + `<journal>_posts.epub` + "`" + ` or
` + "`" + `<journal>_posts_<year>.epub` + "`" + `. Posts are ordered by date, then URL;
each chapter links to its neighbours, its year in the table of contents and
its tag pages.
`
