package rewrite

import (
	"fmt"

	"uniqtext/internal/model"
)

// BuildPrompt asks for a rewritten card as a bare JSON object with the keys
// title, base_desc, detail_desc, short and keywords.
func BuildPrompt(p model.ProductRecord, d model.DescriptionRecord) string {
	return fmt.Sprintf(`Сгенерируй новый текст о товаре, перефразировав исходный текст и дополнив его.

1. Переформулируй, если возможно, название товара: %s
   - не длиннее 65 символов;
   - без несущественных знаков.
2. Существенно измени базовое описание товара (120-320 символов): %s
3. Существенно измени детальное описание товара: %s
   - сохрани структуру: заголовок абзаца со знаком "#" в начале строки и текст под ним;
   - заголовки тоже перефразируй;
   - абзацы можно объединять по смыслу или разделять.
4. Придумай короткий слоган для товара.
5. Подбери не более 10 ключевых слов по статистике https://wordstat.yandex.ru, без слов вроде "купить" и "в стоматологии".

Ответ дай только в виде JSON-объекта, без Markdown-разметки, обрамляющих символов и любого другого текста.
Все строки в кавычках, специальные символы экранированы. Формат:
{"title": <новое название>, "base_desc": <новое базовое описание>, "detail_desc": <новое детальное описание>, "short": <слоган>, "keywords": <ключевые слова через запятую>}`,
		p.Title, d.BaseDesc, d.DetailDesc)
}
