// Package cli реализует инструмент командной строки бэк-офиса.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с API бэк-офиса.
// Работает через HTTP, не импортирует внутренние пакеты сервисов.
// Используется операторами для управления очередью задач скачивания,
// записями и уведомлениями.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Инкапсулирует запросы, парсинг ответов
// (DataResponse, ListResponse, ErrorResponse) и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	tasks, err := client.ListTasks("pending", 50)
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: backoffice task list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - task:         list, create, show, delete
//   - recording:    list, trim, trim-complete, trim-cancel
//   - notification: list, create
//
// Каждая группа создаётся через фабричную функцию (NewTaskCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
