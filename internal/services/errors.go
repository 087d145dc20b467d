package services

import "errors"

var (
	ErrInvalidAmount   = errors.New("сумма должна быть больше 0")
	ErrSelfTransfer    = errors.New("нельзя переводить на свой же счёт")
	ErrAccountNotEmpty = errors.New("нельзя закрыть счёт с ненулевым балансом")
	ErrCustomerActive  = errors.New("нельзя удалить клиента с открытыми счетами")
)

// ValidationError — ошибка валидации входных данных с привязкой
// к полям. Возвращается до каких-либо мутаций и транслируется
// обработчиком в 400 с картой ошибок по полям.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "ошибка валидации входных данных"
}

func newValidation() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) add(field, message string) {
	e.Fields[field] = message
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
