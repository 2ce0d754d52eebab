package bulletin

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"bulletin_scraper/internal/domain"
)

const (
	DefaultMaxItems = 20

	containerSelector  = "div.studentbuletin"
	itemSelector       = "div.row-fluid"
	textSelector       = "div.itemtext"
	metaSelector       = "div.itemmeta"
	attachmentSelector = "div.itemattachments"
)

var blankLines = regexp.MustCompile(`\n\s*\n`)

// NormalizeText collapses runs of blank lines and trims the result.
// Invalid UTF-8 sequences are replaced with U+FFFD. Item content is
// always computed through it.
func NormalizeText(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	return strings.TrimSpace(blankLines.ReplaceAllString(s, "\n\n"))
}

// Extract parses a bulletin page. The body is decoded to UTF-8 using
// the charset from contentType, a <meta> declaration or content
// sniffing, in that order. The first maxItems rows of the container
// are considered; rows without text are skipped.
func Extract(r io.Reader, contentType string, maxItems int) ([]domain.RawItem, error) {
	if decoded, err := charset.NewReader(r, contentType); err == nil {
		r = decoded
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return ExtractDocument(doc, maxItems)
}

func ExtractDocument(doc *goquery.Document, maxItems int) ([]domain.RawItem, error) {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	container := doc.Find(containerSelector).First()
	if container.Length() == 0 {
		return nil, &domain.ContentNotFoundError{Selector: containerSelector}
	}

	var items []domain.RawItem
	container.Find(itemSelector).EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i >= maxItems {
			return false
		}
		if item, ok := parseItem(row); ok {
			items = append(items, item)
		}
		return true
	})

	return items, nil
}

func parseItem(row *goquery.Selection) (domain.RawItem, bool) {
	text := row.Find(textSelector).First()
	if text.Length() == 0 {
		return domain.RawItem{}, false
	}

	content := NormalizeText(text.Text())
	if content == "" {
		return domain.RawItem{}, false
	}

	item := domain.RawItem{Content: content}

	if meta := row.Find(metaSelector).First(); meta.Length() > 0 {
		item.HasMeta = true
		item.Meta = meta.Text()
		item.PostedInfo = strippedText(meta)
	}

	text.Find("a").Each(func(_ int, a *goquery.Selection) {
		item.Links = append(item.Links, domain.Link{
			Text: a.Text(),
			Href: a.AttrOr("href", ""),
		})
	})

	row.Find(attachmentSelector).First().Find("a").Each(func(_ int, a *goquery.Selection) {
		item.Attachments = append(item.Attachments, domain.Attachment{
			Name: strippedText(a),
			URL:  a.AttrOr("href", ""),
		})
	})

	return item, true
}

// strippedText joins the trimmed text nodes under sel with no separator.
func strippedText(sel *goquery.Selection) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return sb.String()
}
