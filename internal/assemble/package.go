package assemble

import (
	"encoding/xml"
	"fmt"
	"time"
)

const (
	contentDir   = "EPUB/"
	mimetype     = "application/epub+zip"
	xhtmlType    = "application/xhtml+xml"
	containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="EPUB/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`
)

type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Xmlns    string      `xml:"xmlns,attr"`
	Version  string      `xml:"version,attr"`
	UniqueID string      `xml:"unique-identifier,attr"`
	Lang     string      `xml:"xml:lang,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest []opfItem   `xml:"manifest>item"`
	Spine    opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	XmlnsDC    string        `xml:"xmlns:dc,attr"`
	Identifier opfIdentifier `xml:"dc:identifier"`
	Title      string        `xml:"dc:title"`
	Language   string        `xml:"dc:language"`
	Creator    string        `xml:"dc:creator,omitempty"`
	Meta       []opfMeta     `xml:"meta"`
}

type opfIdentifier struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type opfMeta struct {
	Property string `xml:"property,attr"`
	Value    string `xml:",chardata"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfSpine struct {
	Toc   string       `xml:"toc,attr"`
	Items []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef string `xml:"idref,attr"`
}

type ncxDoc struct {
	XMLName xml.Name      `xml:"ncx"`
	Xmlns   string        `xml:"xmlns,attr"`
	Version string        `xml:"version,attr"`
	Head    []ncxMeta     `xml:"head>meta"`
	Title   string        `xml:"docTitle>text"`
	NavMap  []ncxNavPoint `xml:"navMap>navPoint"`
}

type ncxMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type ncxNavPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     string     `xml:"navLabel>text"`
	Content   ncxContent `xml:"content"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

// opf builds the package document. Spine order: nav, toc, tags, tag pages,
// chapters.
func (b *book) opf() ([]byte, error) {
	pkg := opfPackage{
		Xmlns:    "http://www.idpf.org/2007/opf",
		Version:  "3.0",
		UniqueID: "book-id",
		Lang:     b.Lang,
		Metadata: opfMetadata{
			XmlnsDC:    "http://purl.org/dc/elements/1.1/",
			Identifier: opfIdentifier{ID: "book-id", Value: b.Identifier},
			Title:      b.Title,
			Language:   b.Lang,
			Creator:    b.Author,
			Meta:       []opfMeta{{Property: "dcterms:modified", Value: b.Modified.UTC().Format(time.RFC3339)}},
		},
		Spine: opfSpine{Toc: "ncx"},
	}

	add := func(id, href, mediaType, props string, inSpine bool) {
		pkg.Manifest = append(pkg.Manifest, opfItem{ID: id, Href: href, MediaType: mediaType, Properties: props})
		if inSpine {
			pkg.Spine.Items = append(pkg.Spine.Items, opfItemRef{IDRef: id})
		}
	}
	add("nav", "nav.xhtml", xhtmlType, "nav", true)
	add("toc", "toc.xhtml", xhtmlType, "", true)
	add("tags", "tags.xhtml", xhtmlType, "", true)
	for _, t := range b.Tags {
		add(t.ID, t.File, xhtmlType, "", true)
	}
	for _, c := range b.Chapters {
		add(c.ID, c.File, xhtmlType, "", true)
	}
	add("ncx", "toc.ncx", "application/x-dtbncx+xml", "", false)
	add("style", "style/default.css", "text/css", "", false)

	return marshalXML(pkg)
}

// ncx builds the EPUB 2 navigation map for older readers.
func (b *book) ncx() ([]byte, error) {
	doc := ncxDoc{
		Xmlns:   "http://www.daisy.org/z3986/2005/ncx/",
		Version: "2005-1",
		Head: []ncxMeta{
			{Name: "dtb:uid", Content: b.Identifier},
			{Name: "dtb:depth", Content: "1"},
		},
		Title: b.Title,
	}
	order := 0
	point := func(id, label, src string) {
		order++
		doc.NavMap = append(doc.NavMap, ncxNavPoint{ID: id, PlayOrder: order, Label: label, Content: ncxContent{Src: src}})
	}
	point("np-toc", "Table of Contents", "toc.xhtml")
	point("np-tags", "Tags", "tags.xhtml")
	for _, c := range b.Chapters {
		point("np-"+c.ID, c.Title, c.File)
	}
	return marshalXML(doc)
}

func marshalXML(v any) ([]byte, error) {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("assemble: marshal: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
