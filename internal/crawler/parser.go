package crawler

import (
	"bytes"
	"iter"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractLinks returns the href values of all <a> elements in body, in
// document order. Tokens are pulled lazily, so a consumer that stops early
// never tokenizes the rest of the document.
//
// The sequence can be ranged over more than once; each range starts a fresh
// tokenizer. Malformed markup never fails: the tokenizer recovers where it
// can and the sequence ends at the first unrecoverable error.
func ExtractLinks(body []byte) iter.Seq[string] {
	return func(yield func(string) bool) {
		z := html.NewTokenizer(bytes.NewReader(body))
		for {
			switch z.Next() {
			case html.ErrorToken:
				return
			case html.StartTagToken, html.SelfClosingTagToken:
				name, hasAttr := z.TagName()
				if atom.Lookup(name) != atom.A || !hasAttr {
					continue
				}
				if href, ok := hrefAttr(z); ok {
					if !yield(href) {
						return
					}
				}
			}
		}
	}
}

// hrefAttr scans the attributes of the current tag for href.
func hrefAttr(z *html.Tokenizer) (string, bool) {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "href" {
			return string(val), true
		}
		if !more {
			return "", false
		}
	}
}
