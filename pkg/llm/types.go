// Базовые типы - определяем универсальный язык общения с моделями
package llm

// Kind - идентификатор LLM провайдера.
type Kind string

// Известные провайдеры.
const (
	KindDeepSeek Kind = "deepseek"
	KindGemini   Kind = "gemini"
)

// Kinds возвращает все известные провайдеры в порядке объявления.
func Kinds() []Kind {
	return []Kind{KindDeepSeek, KindGemini}
}

// ParseKind проверяет что строка - один из известных провайдеров.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Valid сообщает, является ли k одним из известных провайдеров.
func (k Kind) Valid() bool {
	_, ok := ParseKind(string(k))
	return ok
}

// DisplayName - человекочитаемое имя для UI.
func (k Kind) DisplayName() string {
	switch k {
	case KindDeepSeek:
		return "DeepSeek"
	case KindGemini:
		return "Gemini"
	default:
		return string(k)
	}
}

// Attachment - файл, приложенный пользователем к запросу.
type Attachment struct {
	Name    string
	Content string
}

// Request - запрос на генерацию приложения.
type Request struct {
	Prompt      string       // Описание приложения на естественном языке
	StyleHint   string       // Опционально: пожелания по стилю
	Attachments []Attachment // Опционально: справочные файлы
}

// ApplicationRecord - нормализованный результат генерации.
//
// Все четыре поля всегда заполнены (см. pkg/normalizer).
type ApplicationRecord struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Code        string `json:"code"`
	Icon        string `json:"icon"`
}
