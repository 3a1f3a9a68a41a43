// Package pipeline реализует конвейер "опрос статуса → получение записей".
//
// Для каждой диспатченной задачи очереди выполняется одна последовательная
// цепочка:
//
//	Poller (конечный автомат опроса статуса встречи)
//	  → Fetcher (обход экземпляров, обнаружение и скачивание артефактов)
//	    → терминальный статус задачи (done / deleted_in_zoom)
//
// Конвейеры разных встреч независимы и выполняются конкурентно, общее
// изменяемое состояние — только хранилище задач и метаданных записей.
// Все ожидания идут через внедряемый Clock, что позволяет детерминированно
// тестировать расписание backoff без реальных задержек.
package pipeline
