package model

import "time"

// ProductRecord holds the required fields scraped from a product card.
type ProductRecord struct {
	Title           string
	Brand           string
	Country         string
	Article         string
	MetaTitle       string
	MetaDescription string
}

// DescriptionRecord is the free-text part of the card, split into the short
// lead-in and the detailed body with "#" headings.
type DescriptionRecord struct {
	BaseDesc   string
	DetailDesc string
}

// RewriteResult is the decoded answer of the text generation service.
type RewriteResult struct {
	Title      string
	BaseDesc   string
	DetailDesc string
	Short      string
	Keywords   string
}

// Columns is the header of the output table, in order.
var Columns = []string{
	"URL",
	"DF Номенклатура",
	"Бренд",
	"Страна",
	"DF Артикул",
	"DF META TITLE",
	"DF KEYWORDS",
	"DF Meta Description",
	"DF <h2>",
	"DF верхнее описание",
	"DF основное описание",
}

type OutputRow struct {
	URL             string
	Title           string
	Brand           string
	Country         string
	Article         string
	MetaTitle       string
	Keywords        string
	MetaDescription string
	Short           string
	BaseDesc        string
	DetailDesc      string
}

func NewOutputRow(url string, p ProductRecord, r RewriteResult) OutputRow {
	return OutputRow{
		URL:             url,
		Title:           r.Title,
		Brand:           p.Brand,
		Country:         p.Country,
		Article:         p.Article,
		MetaTitle:       p.MetaTitle,
		Keywords:        r.Keywords,
		MetaDescription: p.MetaDescription,
		Short:           r.Short,
		BaseDesc:        r.BaseDesc,
		DetailDesc:      r.DetailDesc,
	}
}

// Values returns the row cells in Columns order.
func (r OutputRow) Values() []string {
	return []string{
		r.URL,
		r.Title,
		r.Brand,
		r.Country,
		r.Article,
		r.MetaTitle,
		r.Keywords,
		r.MetaDescription,
		r.Short,
		r.BaseDesc,
		r.DetailDesc,
	}
}

// RunOutcome is the per-URL result of a batch. Stage is the stage that
// failed, or the last one reached on success.
type RunOutcome struct {
	URL       string
	Succeeded bool
	Stage     string
	Err       error
	Elapsed   time.Duration
}
