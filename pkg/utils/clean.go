// Package utils предоставляет вспомогательные функции для обработки вывода LLM.
//
// Модели часто оборачивают ответ в markdown и добавляют пояснения вокруг JSON.
// Здесь - эвристики, которые такое снимают. Ни одна функция не валидирует JSON:
// для этого json.Unmarshal на стороне вызывающего.
package utils

import (
	"strings"
	"unicode/utf8"
)

// StripCodeFence удаляет markdown-обёртку вокруг всего текста.
//
// Первая строка-ограда (```, ```html, ~~~json ...) и последняя строка-ограда
// удаляются; текст без ограды возвращается обрезанным по краям.
//
// Примеры:
//   "```html\n<!DOCTYPE html>\n```" → "<!DOCTYPE html>"
//   "~~~\nx\n~~~"                   → "x"
//   "text ``` inline"               → "text ``` inline"
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !isFence(s) {
		return s
	}

	lines := strings.Split(s, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && isFence(strings.TrimSpace(lines[n-1])) {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isFence(line string) bool {
	return strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~")
}

// ExtractJSONSpan возвращает подстроку от первой '{' до последней '}' включительно.
//
// Это намеренно НЕ балансировка скобок: фигурные скобки внутри строк
// (например CSS/JS в поле "code") не ломают извлечение внешнего объекта.
// Цена - неточное извлечение при нескольких объектах в тексте; это
// проверит json.Unmarshal вызывающего.
//
// ok == false если '{' нет, '}' нет, или последняя '}' стоит раньше первой '{'.
func ExtractJSONSpan(s string) (span string, ok bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return "", false
	}
	return s[start : end+1], true
}

// Truncate обрезает строку до max рун, добавляя "…".
// max < 1 возвращает строку без изменений.
func Truncate(s string, max int) string {
	if max < 1 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "…"
}
