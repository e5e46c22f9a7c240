package utils

// MaskSecret маскирует API ключ для логов и UI.
//
//	""            → "NOT SET"
//	"abc"         → "***"
//	"sk-12345678" → "sk-1…5678"
func MaskSecret(key string) string {
	if key == "" {
		return "NOT SET"
	}
	r := []rune(key)
	if len(r) <= 8 {
		return "***"
	}
	return string(r[:4]) + "…" + string(r[len(r)-4:])
}
