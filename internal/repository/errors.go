package repository

import "errors"

// Доменные ошибки хранилища. Сервисный слой транслирует их
// в HTTP-статусы; частично применённых изменений за ними не стоит —
// любая ошибка внутри атомарного блока означает полный откат.
var (
	ErrAccountNotFound     = errors.New("счёт не найден")
	ErrAccountClosed       = errors.New("счёт закрыт")
	ErrTransactionNotFound = errors.New("транзакция не найдена")
	ErrCustomerNotFound    = errors.New("клиент не найден")
	ErrCustomerHasAccounts = errors.New("у клиента есть открытые счета")
	ErrInsufficientBalance = errors.New("недостаточно средств")
	ErrBalanceNotZero      = errors.New("баланс счёта не нулевой")
)
