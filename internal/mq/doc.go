// Package mq — инфраструктура RabbitMQ для событий бэк-офиса.
//
// Структура:
//   - connection.go — соединение с автоматическим reconnect
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация событий
//   - consumer.go   — потребление событий
//
// События:
//   - download.due             — задача скачивания созрела и захвачена воркером
//   - notifications.delivered  — батч уведомлений подтверждённо доставлен
//
// Шина опциональна: воркер очереди публикует download.due как быстрый
// путь для конвейера, но источником истины остаётся БД — при недоступном
// RabbitMQ система живёт на одном polling.
package mq
