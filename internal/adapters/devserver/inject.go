package devserver

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// InjectReloadScript appends the reload client to the end of the document body.
// Documents that already load it are returned unchanged.
func InjectReloadScript(page []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var body *html.Node
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}
		if n.DataAtom == atom.Script && hasReloadSrc(n) {
			return page, nil
		}
		if n.DataAtom == atom.Body && body == nil {
			body = n
		}
	}
	if body == nil {
		return page, nil
	}

	body.AppendChild(&html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "src", Val: ReloadScriptPath}},
	})

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func hasReloadSrc(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "src" && a.Val == ReloadScriptPath {
			return true
		}
	}
	return false
}
