package marketplace

import "errors"

var (
	// ErrToggleRejected — маркетплейс отклонил переключение товара.
	ErrToggleRejected = errors.New("toggle rejected by marketplace")

	// ErrUnexpectedStatus — HTTP-ответ вне 2xx для чтения каталога.
	ErrUnexpectedStatus = errors.New("unexpected marketplace response")
)
