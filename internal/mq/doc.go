// Package mq — транспорт запуска job'ов через RabbitMQ.
//
// Структура:
//   - connection.go — соединение с автоматическим переподключением
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация job.start
//   - consumer.go   — потребление с ack/nack
//
// Сообщение job.start несёт только task_id: всё остальное worker читает из БД.
// Ошибка обработчика возвращает сообщение в очередь, ErrReject отправляет его в DLQ.
package mq
