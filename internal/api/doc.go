// Package api содержит HTTP API бэк-офиса.
//
// Структура:
//   - handler.go              — Handler с DI (хранилища, конвейер, logger)
//   - routes.go               — регистрация маршрутов
//   - middleware.go           — middleware (logging, recovery)
//   - response.go             — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                  — Data Transfer Objects (request/response)
//   - download_handler.go     — приём задач конвейером
//   - task_handler.go         — управление очередью задач скачивания
//   - recording_handler.go    — записи и trim-операции
//   - notification_handler.go — очередь уведомлений
package api
