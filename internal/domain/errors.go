package domain

import "errors"

var (
	// ErrSourceUnavailable - файл экспорта отсутствует или не читается.
	ErrSourceUnavailable = errors.New("chat export file is unavailable")
	// ErrInvalidFilter - некорректные параметры фильтрации (дата, регулярное выражение).
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrTaskNotFound - задача с указанным идентификатором не найдена.
	ErrTaskNotFound = errors.New("task not found")
)
