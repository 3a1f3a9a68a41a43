// Package queue реализует воркеры над долговечными очередями в БД.
//
// Два независимых цикла:
//
//   - Worker — сканирует очередь задач скачивания: возвращает зависшие
//     задачи в pending, атомарно захватывает созревшие и передаёт их
//     конвейеру (fire-and-forget). Подтверждения нет: задача, чей
//     конвейер умер, вернётся в очередь через окно staleness.
//
//   - Notifier — собирает pending-уведомления в батчи и доставляет их
//     одним HTTP-запросом; недоставленные батчи помечаются error и
//     повторяются отдельным, более редким циклом.
//
// Несколько экземпляров воркера могут работать над одной БД: захват
// задач атомарен (FOR UPDATE SKIP LOCKED), двойного захвата нет.
package queue
