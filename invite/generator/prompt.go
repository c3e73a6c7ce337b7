package generator

import (
	"fmt"
	"strings"
)

const systemPrompt = `Ты генератор праздничных приглашений. Тебе передают факты о событии,
а ты возвращаешь готовый HTML-фрагмент приглашения на русском языке.

Требования:
- Верни только HTML без markdown-обёрток и пояснений.
- Тёплый, праздничный тон; заголовок, дата, время и место выделены.
- В конце добавь ссылку для подтверждения участия вида
  <a href="/event/EVENT_ID_PLACEHOLDER">Я приду!</a>.
  Токен EVENT_ID_PLACEHOLDER оставь дословно, он будет заменён позже.
- Не выдумывай факты, которых нет во входных данных.`

func buildUserPrompt(f Facts) string {
	var b strings.Builder
	b.WriteString("Составь приглашение по этим данным:\n")
	fmt.Fprintf(&b, "Тип события: %s\n", f.EventType)
	fmt.Fprintf(&b, "Название: %s\n", f.Name)
	fmt.Fprintf(&b, "Дата: %s\n", f.Date)
	fmt.Fprintf(&b, "Время: %s\n", f.Time)
	fmt.Fprintf(&b, "Место: %s\n", f.Location)
	if f.Style != "" {
		fmt.Fprintf(&b, "Стиль оформления: %s\n", f.Style)
	}
	if len(f.PhotoURLs) > 0 {
		b.WriteString("Фотографии (вставь их тегами <img>):\n")
		for _, u := range f.PhotoURLs {
			fmt.Fprintf(&b, "- %s\n", u)
		}
	}
	return b.String()
}
