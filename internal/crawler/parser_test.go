package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardFixture = `<!DOCTYPE html>
<html>
<body>
	<div class="product-card">
		<h1 class="product-card__title title-sm">  Наконечник ультразвуковой G1  </h1>
		<div class="product-card__prod">
			<span class="product-card__prod-value">Woodpecker</span>
			<span class="product-card__prod-value d-flex align-items-center gap-1 color-gray">
				<img src="/flags/cn.svg" alt=""> Китай
			</span>
		</div>
		<span class="product-card__articul-value color-gray">WP-G1</span>
	</div>
</body>
</html>`

func TestParse(t *testing.T) {
	doc, err := NewDocument(cardFixture)
	require.NoError(t, err)

	p, err := NewExtractor("Dental First").Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, "Наконечник ультразвуковой G1", p.Title)
	assert.Equal(t, "Woodpecker", p.Brand)
	assert.Equal(t, "Китай", p.Country)
	assert.Equal(t, "WP-G1", p.Article)
	assert.Equal(t, "Купить Наконечник ультразвуковой G1 | Dental First", p.MetaTitle)
	assert.Equal(t,
		"Наконечник ультразвуковой G1 в интернет-магазине Dental First. Каталог включает стоматологические товары в широком диапазоне цен. Помощь специалистов, быстрая доставка по всей России.| Dental First",
		p.MetaDescription)
}

func TestParseMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		remove  string
		missing string
	}{
		{
			name:    "no title",
			remove:  `<h1 class="product-card__title title-sm">  Наконечник ультразвуковой G1  </h1>`,
			missing: "title",
		},
		{
			name:    "no article",
			remove:  `<span class="product-card__articul-value color-gray">WP-G1</span>`,
			missing: "article",
		},
		{
			name: "no country",
			remove: `<span class="product-card__prod-value d-flex align-items-center gap-1 color-gray">
				<img src="/flags/cn.svg" alt=""> Китай
			</span>`,
			missing: "country",
		},
		{
			// the country element carries the brand class too, so brand is
			// missing only when both are gone
			name: "no brand",
			remove: `<div class="product-card__prod">
			<span class="product-card__prod-value">Woodpecker</span>
			<span class="product-card__prod-value d-flex align-items-center gap-1 color-gray">
				<img src="/flags/cn.svg" alt=""> Китай
			</span>
		</div>`,
			missing: "brand, country",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := strings.Replace(cardFixture, tt.remove, "", 1)
			require.NotEqual(t, cardFixture, page, "fixture edit did not apply")

			doc, err := NewDocument(page)
			require.NoError(t, err)

			p, err := NewExtractor("Dental First").Parse(doc)
			require.ErrorIs(t, err, ErrMissingFields)
			assert.Contains(t, err.Error(), tt.missing)
			assert.Empty(t, p.Title)
		})
	}
}

func TestParseEmptyElementYieldsEmptyField(t *testing.T) {
	page := strings.Replace(cardFixture, `>WP-G1</span>`, `></span>`, 1)
	doc, err := NewDocument(page)
	require.NoError(t, err)

	p, err := NewExtractor("Dental First").Parse(doc)
	require.NoError(t, err)
	assert.Empty(t, p.Article)
	assert.NotEmpty(t, p.Title)
}

func TestParseJoinsTextFragmentsWithoutSpaces(t *testing.T) {
	page := `<div class="product-card__title title-sm"> Ultra <b>Pro</b> </div>
		<span class="product-card__prod-value">B</span>
		<span class="product-card__prod-value d-flex align-items-center gap-1 color-gray">C</span>
		<span class="product-card__articul-value color-gray">A</span>`
	doc, err := NewDocument(page)
	require.NoError(t, err)

	p, err := NewExtractor("X").Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "UltraPro", p.Title)
}

func TestDescription(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		base   string
		detail string
	}{
		{
			name: "plain paragraphs then headings and lists",
			html: `<div itemprop="description">
				<p class="vadim-p">Первый абзац.</p>
				<p class="vadim-p">Второй абзац.</p>
				<h2 class="vadim-h2">Применение</h2>
				<p class="vadim-p">Текст применения.</p>
				<ol><li>Шаг 1</li><li>Шаг 2</li></ol>
				<h2 class="vadim-h2-green">Комплектация</h2>
				<ul class="komplekt"><li>Насадка</li><li>Ключ</li></ul>
				<ul><li>пропускается</li></ul>
				<p>без класса</p>
			</div>`,
			base:   "Первый абзац.\nВторой абзац.\n\n",
			detail: "#Применение\nТекст применения.\nШаг 1\nШаг 2\n#Комплектация\nНасадка\nКлюч\n",
		},
		{
			name: "heading before any plain paragraph",
			html: `<div itemprop="description">
				<h2 class="vadim-h2">Заголовок</h2>
				<p class="vadim-p">Лид</p>
				<h2 class="vadim-h2">Дальше</h2>
			</div>`,
			base:   "Лид\n\n",
			detail: "#Заголовок\n#Дальше\n",
		},
		{
			name: "switch to detail holds for following blocks",
			html: `<div itemprop="description">
				<p class="vadim-p">Лид</p>
				<h2 class="vadim-h2">Раздел</h2>
			</div>
			<div itemprop="description">
				<p class="vadim-p">Продолжение</p>
			</div>`,
			base:   "Лид\n\n",
			detail: "#Раздел\nПродолжение\n",
		},
		{
			name:   "only plain paragraphs",
			html:   `<div itemprop="description"><p class="vadim-p">Один</p><p class="vadim-p">Два</p></div>`,
			base:   "Один\nДва\n",
			detail: "",
		},
		{
			name:   "no description block",
			html:   `<div class="product-card"><p class="vadim-p">вне блока</p></div>`,
			base:   "",
			detail: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewDocument(tt.html)
			require.NoError(t, err)

			d := Description(doc)
			assert.Equal(t, tt.base, d.BaseDesc)
			assert.Equal(t, tt.detail, d.DetailDesc)
		})
	}
}
