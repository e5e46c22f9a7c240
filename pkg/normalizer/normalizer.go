// Package normalizer превращает сырой текст модели в llm.ApplicationRecord.
//
// Parse тотальна: для любого входа возвращается запись с четырьмя
// непустыми полями. Неудачи генерации выражаются записью, а не ошибкой.
package normalizer

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/ilkoid/appforge/pkg/llm"
	"github.com/ilkoid/appforge/pkg/utils"
)

// Значения по умолчанию для отсутствующих полей.
const (
	DefaultName        = "Generated Application"
	DefaultDescription = "Application created by the assistant"
	DefaultIcon        = "🔧"

	ErrorName = "Generation Error"
	ErrorIcon = "❌"
)

// DefaultCode - документ, который подставляется когда модель не вернула код.
const DefaultCode = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Generation failed</title></head>
<body><p>Generation failed: the model returned no code.</p></body>
</html>`

// Func - сигнатура нормализатора; orchestrator принимает её как опцию.
type Func func(raw string) llm.ApplicationRecord

// Parse разбирает raw в запись.
//
// Порядок:
//  1. подстрока от первой '{' до последней '}' декодируется как JSON-объект,
//     code без <!DOCTYPE / <html оборачивается в <pre>;
//  2. иначе весь текст считается кодом (DOCTYPE - как есть, прочее - в <pre>);
//  3. паника на любом шаге превращается в запись-ошибку.
func Parse(raw string) (rec llm.ApplicationRecord) {
	defer func() {
		if r := recover(); r != nil {
			utils.Error("Normalizer: recovered panic", "panic", r)
			rec = errorRecord(raw, fmt.Sprint(r))
		}
	}()

	if fields, ok := decodeObject(raw); ok {
		return fromFields(fields)
	}

	utils.Debug("Normalizer: no JSON object, using raw text as code", "len", len(raw))
	return llm.ApplicationRecord{
		Name:        DefaultName,
		Description: DefaultDescription,
		Code:        rawAsCode(raw),
		Icon:        DefaultIcon,
	}
}

func decodeObject(raw string) (map[string]any, bool) {
	span, ok := utils.ExtractJSONSpan(raw)
	if !ok {
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(span), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func fromFields(fields map[string]any) llm.ApplicationRecord {
	return llm.ApplicationRecord{
		Name:        field(fields, "name", DefaultName),
		Description: field(fields, "description", DefaultDescription),
		Code:        documentCode(field(fields, "code", DefaultCode)),
		Icon:        field(fields, "icon", DefaultIcon),
	}
}

// documentCode гарантирует, что code из JSON - HTML документ.
func documentCode(code string) string {
	lower := strings.ToLower(code)
	if strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html") {
		return code
	}
	utils.Debug("Normalizer: code is not a document, wrapping", "len", len(code))
	return wrapPre(code)
}

// field возвращает строковое представление fields[key] или def,
// если ключа нет или значение пустое.
func field(fields map[string]any, key, def string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return def
	}

	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return def
		}
		s = string(b)
	}

	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func rawAsCode(raw string) string {
	text := utils.StripCodeFence(raw)
	if text == "" {
		return DefaultCode
	}
	if strings.Contains(strings.ToLower(text), "<!doctype") {
		return text
	}
	return wrapPre(text)
}

func wrapPre(text string) string {
	return "<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>" + DefaultName +
		"</title></head>\n<body><pre>" + html.EscapeString(text) + "</pre></body>\n</html>"
}

func errorRecord(raw, detail string) llm.ApplicationRecord {
	code := DefaultCode
	if strings.TrimSpace(raw) != "" {
		code = wrapPre(raw)
	}
	return llm.ApplicationRecord{
		Name:        ErrorName,
		Description: "Failed to process the model response: " + detail,
		Code:        code,
		Icon:        ErrorIcon,
	}
}
