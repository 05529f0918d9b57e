// Package marketplace — HTTP-клиент API маркетплейса.
//
// Client реализует порты worker.Catalog и worker.Toggler:
//
//	GET  /api/items/count?seller=&status=                  → {"total": n}
//	GET  /api/items?seller=&status=&page_size=&page_no=    → {"items": [...]}
//	POST /api/items/{num_iid}/delisting                    → {"ok": bool}
//	POST /api/items/{num_iid}/listing                      → {"ok": bool}
//
// Все запросы проходят через общий rate.Limiter. Отказ маркетплейса
// (ok=false или HTTP-ошибка) возвращается как ErrToggleRejected: его
// обрабатывает RateController, увеличивая паузу.
package marketplace
