package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ExportHTML пишет код приложения в dir/<slug>.html и возвращает путь.
func ExportHTML(app StoredApp, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	name := Slug(app.Name)
	if len(app.ID) >= 8 {
		name += "-" + app.ID[:8]
	}
	path := filepath.Join(dir, name+".html")

	if err := os.WriteFile(path, []byte(app.Code), 0o644); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return path, nil
}

// Slug превращает имя в безопасное имя файла: буквы и цифры в нижнем
// регистре, остальное - одиночные дефисы. Пустой результат - "app".
func Slug(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(sb.String(), "-")
	if s == "" {
		return "app"
	}
	return s
}
