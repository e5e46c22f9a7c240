package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/muesli/reflow/wrap"
)

// transcript хранит исходные строки лога и перестраивает перенос при
// изменении ширины. Хранить только обёрнутый текст нельзя: после resize
// строки уже разбиты под старую ширину.
type transcript struct {
	viewport viewport.Model
	lines    []string
}

func newTranscript() *transcript {
	return &transcript{viewport: viewport.New(0, 0)}
}

// resize задаёт размеры (минимум 20x1) и сохраняет прокрутку у низа.
func (t *transcript) resize(width, height int) {
	if height < 1 {
		height = 1
	}
	if width < 20 {
		width = 20
	}

	// wasAtBottom считаем ДО изменения высоты
	wasAtBottom := t.atBottom()

	t.viewport.Width = width
	t.viewport.Height = height
	t.viewport.SetContent(reflow(t.lines, width))

	if wasAtBottom {
		t.viewport.GotoBottom()
		return
	}
	maxOffset := t.viewport.TotalLineCount() - t.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if t.viewport.YOffset > maxOffset {
		t.viewport.SetYOffset(maxOffset)
	}
}

// append добавляет запись и прокручивает вниз, если пользователь был внизу.
func (t *transcript) append(entry string) {
	wasAtBottom := t.atBottom()
	t.lines = append(t.lines, entry)
	t.viewport.SetContent(reflow(t.lines, t.viewport.Width))
	if wasAtBottom {
		t.viewport.GotoBottom()
	}
}

func (t *transcript) atBottom() bool {
	return t.viewport.YOffset+t.viewport.Height >= t.viewport.TotalLineCount()
}

// reflow переносит каждую запись по ширине width (width <= 0 - без переноса).
func reflow(lines []string, width int) string {
	if width <= 0 {
		return strings.Join(lines, "\n")
	}
	wrapped := make([]string, 0, len(lines))
	for _, line := range lines {
		wrapped = append(wrapped, wrap.String(line, width))
	}
	return strings.Join(wrapped, "\n")
}
