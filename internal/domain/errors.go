package domain

import "errors"

var (
	// ErrUnknownProvider неизвестный идентификатор платежного провайдера
	ErrUnknownProvider = errors.New("unknown payment provider")

	// ErrProviderNotConfigured провайдер не настроен (отсутствует API ключ)
	ErrProviderNotConfigured = errors.New("payment provider is not configured")

	// ErrSingletonViolation попытка создать вторую запись конфигурации сайта
	ErrSingletonViolation = errors.New("only one site configuration instance is allowed")

	// ErrInvalidOperation операция недопустима в текущем состоянии
	ErrInvalidOperation = errors.New("invalid operation")
)
