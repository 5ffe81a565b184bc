package crawler

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// flagMarker is the text that introduces a hidden token inside a page.
// The token is whatever follows the first ": " in the text node.
const flagMarker = "FLAG: "

// Scan walks the HTML body once with a streaming tokenizer and invokes
// onLink for every in-scope anchor and onFlag for every flag marker it
// finds, in document order. Callbacks fire as the scan progresses, so
// a flag near the top of a page is reported before the page's links
// are enqueued.
//
// An anchor is in scope when its href contains prefix. The absolute
// target keeps the scheme, host and port of base and takes path and
// query from the href, which mirrors how the site links between its
// own pages.
func Scan(body []byte, base *url.URL, prefix string, onLink func(absURL string), onFlag func(flag string)) {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// io.EOF is the normal end; on malformed input the
			// tokenizer stops and everything scanned so far
			// stands.
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			if len(name) != 1 || name[0] != 'a' || !hasAttr {
				continue
			}
			if href, ok := anchorHref(tokenizer); ok {
				if abs, ok := absoluteTarget(base, href, prefix); ok {
					onLink(abs)
				}
			}
		case html.TextToken:
			scanText(string(tokenizer.Text()), onFlag)
		}
	}
}

// anchorHref pulls the href attribute off the current tag.
func anchorHref(tokenizer *html.Tokenizer) (string, bool) {
	for {
		key, val, more := tokenizer.TagAttr()
		if string(key) == "href" {
			return string(val), true
		}
		if !more {
			return "", false
		}
	}
}

// absoluteTarget turns an in-scope href into an absolute URL on the
// crawl target. Out-of-scope or unparsable hrefs are dropped.
func absoluteTarget(base *url.URL, href, prefix string) (string, bool) {
	if !strings.Contains(href, prefix) {
		return "", false
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := &url.URL{
		Scheme:   base.Scheme,
		Host:     base.Host,
		Path:     parsed.Path,
		RawQuery: parsed.RawQuery,
	}
	return abs.String(), true
}

// scanText looks for the flag marker in one text node. The flag is the
// remainder after the first ": ", trimmed of surrounding whitespace.
func scanText(text string, onFlag func(flag string)) {
	if !strings.Contains(text, flagMarker) {
		return
	}
	_, after, found := strings.Cut(text, ": ")
	if !found {
		return
	}
	flag := strings.TrimSpace(after)
	if flag != "" {
		onFlag(flag)
	}
}
