package llm

import (
	"fmt"
	"strings"
)

// SystemInstruction - фиксированный контракт вывода для обоих провайдеров.
//
// DeepSeek получает его system-сообщением, Gemini - префиксом единственной
// текстовой части.
const SystemInstruction = `You are an assistant that builds working web applications.
When the user describes a need, you must:
1. Create a complete, functional HTML/CSS/JavaScript application
2. Return ONLY a valid JSON object, with no explanations around it
3. Make the application self-contained (HTML, CSS and JS in a single document)
4. Include every style and behaviour the application needs
5. Use a modern, responsive design

Expected response format (valid JSON):
{
  "name": "Application name",
  "description": "Short description",
  "code": "<!DOCTYPE html>...",
  "icon": "🔧"
}`

// Разделители секций промпта. Позволяют модели отличить инструкцию
// от пользовательского текста и приложенных файлов.
const (
	sectionRequest   = "### USER REQUEST"
	sectionStyle     = "### STYLE"
	sectionFile      = "### ATTACHED FILE: "
	sectionFileEnd   = "### END OF FILE"
	sectionErrorText = "REPORTED ERROR:"
	sectionCode      = "CURRENT CODE:"
)

// BuildUserPrompt собирает итоговый пользовательский промпт.
//
// Без стиля и вложений возвращает исходный текст как есть.
// Иначе:
//   ### USER REQUEST
//   <prompt>
//
//   ### STYLE
//   <style hint>
//
//   ### ATTACHED FILE: <name>
//   <content>
//   ### END OF FILE
func BuildUserPrompt(req Request) string {
	style := strings.TrimSpace(req.StyleHint)
	if style == "" && len(req.Attachments) == 0 {
		return req.Prompt
	}

	var sb strings.Builder
	sb.WriteString(sectionRequest)
	sb.WriteString("\n")
	sb.WriteString(req.Prompt)
	sb.WriteString("\n")

	if style != "" {
		sb.WriteString("\n")
		sb.WriteString(sectionStyle)
		sb.WriteString("\n")
		sb.WriteString(style)
		sb.WriteString("\n")
	}

	for _, a := range req.Attachments {
		name := a.Name
		if name == "" {
			name = "unnamed"
		}
		sb.WriteString("\n")
		sb.WriteString(sectionFile)
		sb.WriteString(name)
		sb.WriteString("\n")
		sb.WriteString(a.Content)
		if !strings.HasSuffix(a.Content, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString(sectionFileEnd)
		sb.WriteString("\n")
	}

	return sb.String()
}

// BuildFixPrompt собирает промпт исправления: текст ошибки + полный текущий код.
func BuildFixPrompt(currentCode, errorDescription string) string {
	return fmt.Sprintf(`Fix the following HTML/CSS/JavaScript code based on the reported error.

%s %s

%s
%s

Return the corrected code in the same JSON format:
{
  "name": "Corrected application name",
  "description": "Description of the applied fix",
  "code": "<!DOCTYPE html>...",
  "icon": "🔧"
}`, sectionErrorText, errorDescription, sectionCode, currentCode)
}
