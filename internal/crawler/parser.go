package crawler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"uniqtext/internal/model"
)

// ErrMissingFields is returned by Parse when the card lacks a required element.
var ErrMissingFields = errors.New("required product fields not found")

// Selectors is the CSS selector table of the product card. Multi-class
// markers are matched against the whole class attribute.
type Selectors struct {
	Title   string
	Brand   string
	Country string
	Article string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Title:   `[class="product-card__title title-sm"]`,
		Brand:   `.product-card__prod-value`,
		Country: `[class="product-card__prod-value d-flex align-items-center gap-1 color-gray"]`,
		Article: `[class="product-card__articul-value color-gray"]`,
	}
}

type Extractor struct {
	Selectors Selectors
	SiteName  string
}

func NewExtractor(siteName string) *Extractor {
	return &Extractor{Selectors: DefaultSelectors(), SiteName: siteName}
}

func NewDocument(page string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(page))
}

// Parse reads the required card fields. A record is returned only when all
// four elements are present; a present but empty element yields "".
func (e *Extractor) Parse(doc *goquery.Document) (model.ProductRecord, error) {
	fields := []struct {
		name     string
		selector string
		value    string
	}{
		{name: "title", selector: e.Selectors.Title},
		{name: "brand", selector: e.Selectors.Brand},
		{name: "country", selector: e.Selectors.Country},
		{name: "article", selector: e.Selectors.Article},
	}

	var missing []string
	for i := range fields {
		sel := doc.Find(fields[i].selector).First()
		if sel.Length() == 0 {
			missing = append(missing, fields[i].name)
			continue
		}
		fields[i].value = strippedText(sel)
	}
	if len(missing) > 0 {
		return model.ProductRecord{}, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}

	title := fields[0].value
	return model.ProductRecord{
		Title:           title,
		Brand:           fields[1].value,
		Country:         fields[2].value,
		Article:         fields[3].value,
		MetaTitle:       fmt.Sprintf("Купить %s | %s", title, e.SiteName),
		MetaDescription: fmt.Sprintf("%s в интернет-магазине %s. Каталог включает стоматологические товары в широком диапазоне цен. Помощь специалистов, быстрая доставка по всей России.| %s", title, e.SiteName, e.SiteName),
	}, nil
}

// Description splits the description blocks into the lead-in and the detailed
// body. Plain paragraphs go to the lead-in until the first element without the
// plain marker; from then on everything goes to the body for the rest of the
// page. Headings get a "#" prefix and list items are written one per line.
func Description(doc *goquery.Document) model.DescriptionRecord {
	var base, detail strings.Builder
	baseDone := false

	doc.Find(`div[itemprop="description"]`).Each(func(_ int, block *goquery.Selection) {
		block.Find("p, h2, ol, ul").Each(func(_ int, item *goquery.Selection) {
			name := goquery.NodeName(item)
			plain := item.HasClass("vadim-p")

			if !plain && !baseDone && base.Len() > 0 {
				base.WriteString("\n")
				baseDone = true
			}
			if !baseDone && plain {
				base.WriteString(item.Text() + "\n")
				return
			}

			switch {
			case plain || item.HasClass("vadim-h2"):
				if name == "h2" {
					detail.WriteString("#")
				}
				detail.WriteString(item.Text() + "\n")
			case name == "ol":
				writeListItems(&detail, item)
			// overlaps the vadim-h2 branch above; kept for pages that only
			// carry the green marker
			case name == "h2" && item.HasClass("vadim-h2-green"):
				detail.WriteString("#" + item.Text() + "\n")
			case name == "ul" && item.HasClass("komplekt"):
				writeListItems(&detail, item)
			}
		})
	})

	return model.DescriptionRecord{BaseDesc: base.String(), DetailDesc: detail.String()}
}

func writeListItems(sb *strings.Builder, list *goquery.Selection) {
	list.Find("li").Each(func(_ int, li *goquery.Selection) {
		sb.WriteString(li.Text() + "\n")
	})
}

// strippedText joins the trimmed text nodes under the selection.
func strippedText(s *goquery.Selection) string {
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
	for _, n := range s.Nodes {
		walk(n)
	}
	return sb.String()
}
