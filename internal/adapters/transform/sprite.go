package transform

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/tdewolff/minify/v2"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultSpriteName is the file the sprite transform writes in its output directory.
const DefaultSpriteName = "sprite.svg"

// Sprite merges minified icons into one SVG of <symbol> elements.
type Sprite struct {
	minifier *minify.M
}

// Apply builds the sprite from all inputs. Each icon becomes a symbol named after its file.
func (s *Sprite) Apply(ctx context.Context, req *ports.Request) error {
	if len(req.Inputs) == 0 {
		return nil
	}

	var sprite SpriteBuilder
	for _, input := range req.Inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := minifyFile(s.minifier, input)
		if err != nil {
			return inputError(req, input, err)
		}
		if err := sprite.Add(stem(input), data); err != nil {
			return inputError(req, input, err)
		}
	}

	rel := path.Join(filepath.ToSlash(req.Task.OutputDir), req.Task.Option("name", DefaultSpriteName))
	p := producer(req, req.Layout.SourcePath(req.Task.Base))
	if err := req.Sink.WriteFile(p, rel, sprite.Bytes()); err != nil {
		return err
	}
	logf(req.Log, "merged %d icons into %s", sprite.Len(), rel)
	return nil
}

const (
	svgNS   = "http://www.w3.org/2000/svg"
	xlinkNS = "http://www.w3.org/1999/xlink"
)

var urlRef = regexp.MustCompile(`url\(#([^)]+)\)`)

// SpriteBuilder accumulates icons as symbols. Ids inside an icon are prefixed with
// "<icon>-" so icons cannot clash, and the root viewBox is kept on the symbol.
type SpriteBuilder struct {
	symbols map[string][]byte
	xlink   bool
}

// Len returns the number of symbols.
func (b *SpriteBuilder) Len() int {
	return len(b.symbols)
}

// Add converts one SVG document into a symbol called name.
func (b *SpriteBuilder) Add(name string, doc []byte) error {
	if b.symbols == nil {
		b.symbols = make(map[string][]byte)
	}
	var out bytes.Buffer
	w := &symbolWriter{out: &out, prefix: name}

	dec := xml.NewDecoder(bytes.NewReader(doc))
	depth := 0
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return zerr.With(zerr.Wrap(err, "invalid svg"), "icon", name)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if t.Name.Local != "svg" {
					return zerr.With(zerr.New("root element is not svg"), "icon", name)
				}
				w.openSymbol(t.Attr)
			} else {
				w.start(t)
			}
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				w.closeSymbol()
			} else {
				w.end(t)
			}
		case xml.CharData:
			if depth > 0 && len(bytes.TrimSpace(t)) > 0 {
				w.text(t)
			}
		}
	}
	if depth != 0 {
		return zerr.With(zerr.New("unterminated svg"), "icon", name)
	}
	if out.Len() == 0 {
		return zerr.With(zerr.New("empty svg"), "icon", name)
	}

	b.symbols[name] = out.Bytes()
	b.xlink = b.xlink || w.xlink
	return nil
}

// Bytes renders the sprite with symbols ordered by name.
func (b *SpriteBuilder) Bytes() []byte {
	names := make([]string, 0, len(b.symbols))
	for name := range b.symbols {
		names = append(names, name)
	}
	sort.Strings(names)

	var out bytes.Buffer
	out.WriteString(`<svg xmlns="` + svgNS + `"`)
	if b.xlink {
		out.WriteString(` xmlns:xlink="` + xlinkNS + `"`)
	}
	out.WriteString(">")
	for _, name := range names {
		out.Write(b.symbols[name])
	}
	out.WriteString("</svg>")
	return out.Bytes()
}

// symbolWriter serializes raw tokens, closing empty elements as "/>".
type symbolWriter struct {
	out     *bytes.Buffer
	prefix  string
	pending bool
	xlink   bool
}

func (w *symbolWriter) openSymbol(attrs []xml.Attr) {
	var viewBox, width, height, aspect string
	for _, a := range attrs {
		if a.Name.Space != "" {
			continue
		}
		switch a.Name.Local {
		case "viewBox":
			viewBox = a.Value
		case "width":
			width = a.Value
		case "height":
			height = a.Value
		case "preserveAspectRatio":
			aspect = a.Value
		}
	}
	if viewBox == "" && width != "" && height != "" {
		viewBox = "0 0 " + strings.TrimSuffix(width, "px") + " " + strings.TrimSuffix(height, "px")
	}

	w.out.WriteString(`<symbol id="`)
	escape(w.out, w.prefix)
	w.out.WriteString(`"`)
	if viewBox != "" {
		w.attr("viewBox", viewBox)
	}
	if aspect != "" {
		w.attr("preserveAspectRatio", aspect)
	}
	w.out.WriteString(">")
}

func (w *symbolWriter) closeSymbol() {
	w.flush()
	w.out.WriteString("</symbol>")
}

func (w *symbolWriter) start(t xml.StartElement) {
	w.flush()
	w.out.WriteString("<" + qualified(t.Name))
	for _, a := range t.Attr {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			continue
		}
		w.attr(qualified(a.Name), w.rewrite(a))
	}
	w.pending = true
}

func (w *symbolWriter) end(t xml.EndElement) {
	if w.pending {
		w.out.WriteString("/>")
		w.pending = false
		return
	}
	w.out.WriteString("</" + qualified(t.Name) + ">")
}

func (w *symbolWriter) text(data []byte) {
	w.flush()
	escape(w.out, string(data))
}

func (w *symbolWriter) flush() {
	if w.pending {
		w.out.WriteString(">")
		w.pending = false
	}
}

func (w *symbolWriter) attr(name, value string) {
	w.out.WriteString(" " + name + `="`)
	escape(w.out, value)
	w.out.WriteString(`"`)
}

// rewrite prefixes id definitions and local references.
func (w *symbolWriter) rewrite(a xml.Attr) string {
	if a.Name.Space == "xlink" {
		w.xlink = true
	}
	switch {
	case a.Name.Local == "id" && a.Name.Space == "":
		return w.prefix + "-" + a.Value
	case a.Name.Local == "href" && strings.HasPrefix(a.Value, "#"):
		return "#" + w.prefix + "-" + a.Value[1:]
	default:
		return urlRef.ReplaceAllString(a.Value, "url(#"+w.prefix+"-$1)")
	}
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func escape(w io.Writer, s string) {
	_ = xml.EscapeText(w, []byte(s))
}
