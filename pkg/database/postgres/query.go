package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// applyQueryTimeout 应用查询超时到 context
func (c *Client) applyQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.QueryTimeout)
	}
	return ctx, func() {}
}

// Row 单行查询结果
// Scan 完成后释放查询超时，pgx.ErrNoRows 转换为 ErrNoRows
type Row struct {
	row    pgx.Row
	cancel context.CancelFunc
}

// Scan 读取结果到 dest
func (r *Row) Scan(dest ...any) error {
	defer r.cancel()

	if err := r.row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoRows
		}
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}

// QueryRow 查询单行（走从库），返回值满足 pgx.Row
func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ctx, cancel := c.applyQueryTimeout(ctx)

	pool := c.getSlave()
	return &Row{
		row:    pool.QueryRow(ctx, sql, args...),
		cancel: cancel,
	}
}

// Exec 执行写操作（INSERT/UPDATE/DELETE），返回受影响行数
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ctx, cancel := c.applyQueryTimeout(ctx)
	defer cancel()

	pool := c.getMaster() // 写操作使用主库

	result, err := pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("exec failed: %w", err)
	}

	return result.RowsAffected(), nil
}

// ExecScript 在主库执行多条语句的脚本，用于建表迁移
// 脚本不带参数，走简单协议
func (c *Client) ExecScript(ctx context.Context, script string) error {
	ctx, cancel := c.applyQueryTimeout(ctx)
	defer cancel()

	conn, err := c.getMaster().Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection failed: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Conn().PgConn().Exec(ctx, script).ReadAll(); err != nil {
		return fmt.Errorf("exec script failed: %w", err)
	}
	return nil
}
