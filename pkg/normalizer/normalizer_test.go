package normalizer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/appforge/pkg/llm"
)

func assertComplete(t *testing.T, rec llm.ApplicationRecord) {
	t.Helper()
	assert.NotEmpty(t, rec.Name, "name")
	assert.NotEmpty(t, rec.Description, "description")
	assert.NotEmpty(t, rec.Code, "code")
	assert.NotEmpty(t, rec.Icon, "icon")
}

func TestParse_Totality(t *testing.T) {
	inputs := map[string]string{
		"empty":          "",
		"whitespace":     "   \n\t",
		"lone open":      "{",
		"lone close":     "}",
		"reversed":       "} {",
		"invalid json":   `{"name": "x", "code": }`,
		"array":          `[1, 2, 3]`,
		"null object":    `{}`,
		"number fields":  `{"name": 42, "description": true, "code": null, "icon": ""}`,
		"nested fields":  `{"name": {"a": 1}, "code": ["x"]}`,
		"plain prose":    "Sorry, I cannot help with that.",
		"html no json":   "<!DOCTYPE html><html><body>hi</body></html>",
		"unicode":        "привет 👋",
		"deep garbage {": "{{{{}}}}}",
	}

	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			assertComplete(t, Parse(raw))
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	want := llm.ApplicationRecord{
		Name:        "Todo List",
		Description: "Simple todo manager",
		Code:        "<!DOCTYPE html><html><style>body{margin:0}</style><script>function f(){ if (a) { b() } }</script></html>",
		Icon:        "📝",
	}
	data, err := json.Marshal(want)
	require.NoError(t, err)

	assert.Equal(t, want, Parse(string(data)))
}

func TestParse_NoiseTolerance(t *testing.T) {
	raw := "Here is your app:\n```json\n" +
		`{"name":"Calc","description":"Calculator","code":"<!DOCTYPE html><p>1+1</p>","icon":"🧮"}` +
		"\n```\nLet me know if you need changes."

	rec := Parse(raw)

	assert.Equal(t, "Calc", rec.Name)
	assert.Equal(t, "Calculator", rec.Description)
	assert.Equal(t, "<!DOCTYPE html><p>1+1</p>", rec.Code)
	assert.Equal(t, "🧮", rec.Icon)
}

func TestParse_MissingIconDefaults(t *testing.T) {
	rec := Parse(`{"name":"Timer","description":"Countdown","code":"<html></html>"}`)

	assert.Equal(t, "Timer", rec.Name)
	assert.Equal(t, DefaultIcon, rec.Icon)
}

func TestParse_EmptyFieldsDefault(t *testing.T) {
	rec := Parse(`{"name":"  ","description":"","code":"","icon":""}`)

	assert.Equal(t, DefaultName, rec.Name)
	assert.Equal(t, DefaultDescription, rec.Description)
	assert.Equal(t, DefaultCode, rec.Code)
	assert.Equal(t, DefaultIcon, rec.Icon)
}

func TestParse_NonStringFieldsFormatted(t *testing.T) {
	rec := Parse(`{"name": 42, "description": true, "code": "<html></html>", "icon": 1.5}`)

	assert.Equal(t, "42", rec.Name)
	assert.Equal(t, "true", rec.Description)
	assert.Equal(t, "1.5", rec.Icon)
}

func TestParse_DoctypeUsedVerbatim(t *testing.T) {
	raw := "```html\n<!doctype html>\n<html><body>ok</body></html>\n```"

	rec := Parse(raw)

	assert.Equal(t, "<!doctype html>\n<html><body>ok</body></html>", rec.Code)
	assert.Equal(t, DefaultName, rec.Name)
}

func TestParse_PlainTextEscapedIntoPre(t *testing.T) {
	rec := Parse("use <b>bold</b> & enjoy")

	assert.True(t, strings.HasPrefix(rec.Code, "<!DOCTYPE html>"))
	assert.Contains(t, rec.Code, "<pre>use &lt;b&gt;bold&lt;/b&gt; &amp; enjoy</pre>")
}

func TestParse_JSONCodeWithoutDocumentWrapped(t *testing.T) {
	rec := Parse(`{"name":"Snippet","code":"function(){return 1 < 2}"}`)

	assert.Equal(t, "Snippet", rec.Name)
	assert.True(t, strings.HasPrefix(rec.Code, "<!DOCTYPE html>"))
	assert.Contains(t, rec.Code, "<pre>function(){return 1 &lt; 2}</pre>")

	rec = Parse(`{"code":"<HTML><body>ok</body></HTML>"}`)
	assert.Equal(t, "<HTML><body>ok</body></HTML>", rec.Code)
}

func TestParse_EmptyRawUsesDefaultCode(t *testing.T) {
	rec := Parse("")

	assert.Equal(t, DefaultCode, rec.Code)
	assert.Equal(t, DefaultIcon, rec.Icon)
}

func TestErrorRecord(t *testing.T) {
	rec := errorRecord("<oops>", "boom")

	assert.Equal(t, ErrorName, rec.Name)
	assert.Equal(t, ErrorIcon, rec.Icon)
	assert.Contains(t, rec.Description, "boom")
	assert.Contains(t, rec.Code, "&lt;oops&gt;")
}
