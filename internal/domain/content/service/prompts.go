package service

import (
	"fmt"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

const defaultTone = "профессиональный, но дружелюбный"

const smmSystemPrompt = `Ты - SMM-специалист компании по строительству бассейнов.
Твоя задача - создавать привлекательные посты для социальных сетей.
Используй эмодзи для визуального оформления.
Пиши на русском языке.
Добавляй 3-5 релевантных хештегов в конце поста.
Текст должен быть между 100-300 символами (без хештегов).`

const editorSystemPrompt = `Ты - редактор SMM-контента.
Улучши текст: сделай его более привлекательным, добавь эмодзи если нужно,
проверь грамматику. Сохрани исходный смысл. Ответь только улучшенным текстом.`

func postPrompt(category entity.Category, poolType, size, features string) string {
	switch category {
	case entity.CategoryTip:
		return fmt.Sprintf(`Создай пост с полезным советом по уходу за бассейном типа "%s".
Тон: %s
Формат: короткий совет с эмодзи и хештегами.`, poolType, defaultTone)
	case entity.CategoryPromo:
		return fmt.Sprintf(`Создай рекламный пост о скидке/акции на строительство бассейнов.
Тип бассейна: %s
Тон: %s
Формат: продающий текст с призывом к действию, эмодзи и хештегами.`, poolType, defaultTone)
	default:
		return fmt.Sprintf(`Создай пост для соцсетей о завершённом проекте бассейна.
Данные:
- Тип бассейна: %s
- Размер: %s
- Особенности: %s

Тон: %s
Формат: короткий, привлекательный пост с эмодзи и хештегами.`, poolType, size, features, defaultTone)
	}
}

func tipPrompt(title, content string) string {
	return fmt.Sprintf(`Перепиши совет по уходу за бассейном в виде поста для соцсетей.
Тема: %s
Суть: %s
Тон: %s
Формат: короткий совет с эмодзи и хештегами.`, title, content, defaultTone)
}

func improvePrompt(text string) string {
	return "Улучши этот пост для соцсетей:\n\n" + text
}

func hashtagsPrompt(text string, count int) string {
	return fmt.Sprintf(`Создай %d релевантных хештегов для этого поста о бассейнах.
Ответь только хештегами через пробел, без объяснений.

Текст: %s`, count, text)
}
