package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LogEntry — запись журнала продавца.
type LogEntry struct {
	ID        int64     `json:"id"`
	Owner     string    `json:"owner"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// LogRepo — журнал продавца, который видит пользователь.
type LogRepo struct {
	pool *pgxpool.Pool
}

// NewLogRepo создаёт новый LogRepo.
func NewLogRepo(pool *pgxpool.Pool) *LogRepo {
	return &LogRepo{pool: pool}
}

// Append добавляет запись.
func (r *LogRepo) Append(ctx context.Context, owner, category, message string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO logs (owner, category, message, created_at)
		VALUES ($1, $2, $3, now())
	`, owner, category, message)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// ListByOwner возвращает последние записи продавца, новые первыми.
func (r *LogRepo) ListByOwner(ctx context.Context, owner string, limit int) ([]LogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner, category, message, created_at
		FROM logs
		WHERE owner = $1
		ORDER BY id DESC
		LIMIT $2
	`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Owner, &e.Category, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
