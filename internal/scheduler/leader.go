package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LockKey — ключ pg advisory lock лидера планировщика.
const LockKey int64 = 424242

// Leader решает, какая реплика планировщика тикает.
type Leader interface {
	TryLead(ctx context.Context) (bool, error)
}

// PGLeader — лидерство через pg_try_advisory_lock.
//
// Advisory lock живёт в сессии, поэтому лидер держит одно выделенное
// соединение из пула, пока не вызван Release или соединение не порвалось.
type PGLeader struct {
	pool *pgxpool.Pool
	key  int64

	mu   sync.Mutex
	conn *pgxpool.Conn
}

// NewPGLeader создаёт PGLeader.
func NewPGLeader(pool *pgxpool.Pool, key int64) *PGLeader {
	return &PGLeader{pool: pool, key: key}
}

// TryLead захватывает lock или подтверждает, что он уже наш.
func (l *PGLeader) TryLead(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		if err := l.conn.Ping(ctx); err == nil {
			return true, nil
		}
		// сессия потеряна вместе с lock'ом
		l.conn.Release()
		l.conn = nil
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire conn: %w", err)
	}

	var ok bool
	if err := conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", l.key).Scan(&ok); err != nil {
		conn.Release()
		return false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Release()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

// Release отпускает lock и соединение.
func (l *PGLeader) Release(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return
	}
	_, _ = l.conn.Exec(ctx, "select pg_advisory_unlock($1)", l.key)
	l.conn.Release()
	l.conn = nil
}
