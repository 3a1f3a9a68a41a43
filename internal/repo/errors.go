package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	ErrAlreadyExists = errors.New("already exists")

	// ErrConflict — compare-and-set не прошёл: запись изменилась между
	// чтением и обновлением. Требует повторного чтения, молча не глотается.
	ErrConflict = errors.New("write conflict")

	// ErrTrimInProgress — обрезка этого артефакта уже идёт.
	ErrTrimInProgress = errors.New("trim already in progress")
)
