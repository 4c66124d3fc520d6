package form

import "errors"

// Ошибки переходов, не связанные с валидацией ввода
var (
	// ErrFinalizeInProgress дубликат команды "сформировать" во время
	// незавершённой генерации документа
	ErrFinalizeInProgress = errors.New("finalize already in progress")

	// ErrUnexpectedEvent событие не имеет смысла в текущем состоянии
	// (например, команда меню вне этапа просмотра)
	ErrUnexpectedEvent = errors.New("event not allowed in current step")
)

// Reason причина ошибки валидации
type Reason int

const (
	// ReasonNotAnInteger количество или цена не распарсились как число
	ReasonNotAnInteger Reason = iota
	// ReasonNoItems попытка сформировать договор без единой позиции
	ReasonNoItems
	// ReasonIndexOutOfRange ссылка на несуществующую позицию
	// (устаревшая кнопка после удаления)
	ReasonIndexOutOfRange
)

// ValidationError локальная восстановимая ошибка ввода.
// Состояние сессии при ней не меняется, пользователь повторяет ввод.
type ValidationError struct {
	Reason  Reason
	Message string // готовый текст для пользователя
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AsValidation возвращает ValidationError, если err им является
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
