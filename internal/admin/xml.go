package admin

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"sort"
)

// xmlHeader mirrors admin.py's XML_HEADER: a declaration plus a
// stylesheet processing instruction every response carries.
const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
	`<?xml-stylesheet type="text/xsl" href="/xsl/style.xsl"?>` + "\n"

// element is a tiny domish.Element stand-in: a tag, its attributes, text
// content, and child elements, grounded on admin.py's
// "domish.Element((None, tag)); e['attr'] = ...; e.addElement(...)" idiom.
// Go has no equivalent tree-building library in the example pack, so this
// is a minimal hand-rolled replacement scoped to what the admin views need
// (see DESIGN.md).
type element struct {
	tag      string
	attrs    map[string]string
	text     string
	children []*element
}

func newElement(tag string) *element {
	return &element{tag: tag, attrs: make(map[string]string)}
}

func (e *element) setAttr(key, value string) *element {
	e.attrs[key] = value
	return e
}

func (e *element) setText(value string) *element {
	e.text = value
	return e
}

func (e *element) addChild(tag string) *element {
	child := newElement(tag)
	e.children = append(e.children, child)
	return child
}

// writeXML renders the element tree as XML, attributes sorted for
// deterministic output (domish doesn't guarantee ordering either, but
// stable output is easier on tests and operators scraping the page).
func (e *element) writeXML(w io.Writer) {
	keys := make([]string, 0, len(e.attrs))
	for k := range e.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "<%s", e.tag)
	for _, k := range keys {
		fmt.Fprintf(w, ` %s="%s"`, k, html.EscapeString(e.attrs[k]))
	}

	if e.text == "" && len(e.children) == 0 {
		fmt.Fprint(w, "/>")
		return
	}

	fmt.Fprint(w, ">")
	if e.text != "" {
		fmt.Fprint(w, html.EscapeString(e.text))
	}
	for _, c := range e.children {
		c.writeXML(w)
	}
	fmt.Fprintf(w, "</%s>", e.tag)
}

func (e *element) toXML() string {
	var buf bytes.Buffer
	e.writeXML(&buf)
	return xmlHeader + buf.String()
}
