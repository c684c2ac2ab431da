package assemble

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

type file struct {
	Name string
	Data []byte
}

// files renders every entry of the container except the mimetype.
func (b *book) files(stylesheet []byte) ([]file, error) {
	type entry struct {
		name   string
		render func() ([]byte, error)
	}
	entries := []entry{
		{"content.opf", b.opf},
		{"nav.xhtml", b.nav},
		{"toc.ncx", b.ncx},
		{"toc.xhtml", b.toc},
		{"tags.xhtml", b.tags},
	}
	for _, t := range b.Tags {
		entries = append(entries, entry{t.File, func() ([]byte, error) { return b.tag(t) }})
	}
	for _, c := range b.Chapters {
		entries = append(entries, entry{c.File, func() ([]byte, error) { return b.chapter(c) }})
	}

	out := []file{{Name: "META-INF/container.xml", Data: []byte(containerXML)}}
	for _, e := range entries {
		data, err := e.render()
		if err != nil {
			return nil, err
		}
		out = append(out, file{Name: contentDir + e.name, Data: data})
	}
	out = append(out, file{Name: contentDir + "style/default.css", Data: stylesheet})
	return out, nil
}

// pack writes the zip container. The mimetype entry comes first and is
// stored uncompressed without extra fields, as readers sniff it at a fixed
// offset.
func pack(dst io.Writer, files []file, modified time.Time) error {
	zw := zip.NewWriter(dst)

	w, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("assemble: zip: %w", err)
	}
	if _, err := w.Write([]byte(mimetype)); err != nil {
		return fmt.Errorf("assemble: zip: %w", err)
	}

	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return fmt.Errorf("assemble: zip %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return fmt.Errorf("assemble: zip %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("assemble: zip: %w", err)
	}
	return nil
}
