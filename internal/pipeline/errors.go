package pipeline

import "errors"

var (
	// ErrFetchExhausted — записи так и не стали доступны за отведённое
	// число попыток. Задача остаётся нетерминальной и будет переназначена
	// воркером очереди после окна staleness.
	ErrFetchExhausted = errors.New("pipeline: recordings not ready after all attempts")
)
