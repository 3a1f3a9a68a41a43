// Package scheduler запускает периодическое обновление расписания игр.
//
// По cron-расписанию (по умолчанию 10:00 и 15:30 Europe/Moscow) сервису
// расписания отправляется запрос на обновление. Неудачный запрос
// логируется и не фатален: следующий тик попробует снова.
//
// Структура:
//   - cron.go      — парсинг cron-выражений и вычисление следующего тика
//   - scheduler.go — цикл ожидания и запуска обновления
package scheduler
