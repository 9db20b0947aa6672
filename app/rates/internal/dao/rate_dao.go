package dao

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/lk2023060901/xdooria-rates/app/rates/internal/metrics"
	"github.com/lk2023060901/xdooria-rates/app/rates/migrations"
	"github.com/lk2023060901/xdooria-rates/pkg/database/postgres"
	"github.com/lk2023060901/xdooria-rates/pkg/logger"
)

// RateTable 倍率表名
const RateTable = "character_custom_xp_rates"

// Querier RateDAO 依赖的数据库操作，*postgres.Client 满足该接口
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// ScriptRunner 执行迁移脚本
type ScriptRunner interface {
	ExecScript(ctx context.Context, script string) error
}

// RateDAO 自定义经验倍率数据访问对象
type RateDAO struct {
	db      Querier
	logger  logger.Logger
	metrics *metrics.RatesMetrics
}

// NewRateDAO 创建倍率 DAO
func NewRateDAO(db Querier, l logger.Logger, m *metrics.RatesMetrics) *RateDAO {
	return &RateDAO{
		db:      db,
		logger:  l.Named("dao.rate"),
		metrics: m,
	}
}

// record 记录一次查询的耗时与结果
func (d *RateDAO) record(operation string, start time.Time, err *error) {
	d.metrics.RecordDBQuery(operation, *err == nil, time.Since(start).Seconds())
}

// Get 读取玩家的倍率，未设置时 found 为 false
func (d *RateDAO) Get(ctx context.Context, playerID int64) (rate uint32, found bool, err error) {
	defer d.record("select", time.Now(), &err)

	query, args, err := postgres.QueryBuilder.
		Select("xp_rate").
		From(RateTable).
		Where(squirrel.Eq{"player_id": playerID}).
		ToSql()
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to build query")
	}

	var v int32
	if err = d.db.QueryRow(ctx, query, args...).Scan(&v); err != nil {
		if errors.Is(err, postgres.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		d.logger.Error("failed to get xp rate",
			"player_id", playerID,
			"error", err,
		)
		return 0, false, errors.Wrapf(err, "failed to get xp rate of player %d", playerID)
	}

	return uint32(v), true, nil
}

// Insert 新增倍率记录
func (d *RateDAO) Insert(ctx context.Context, playerID int64, rate uint32) (err error) {
	defer d.record("insert", time.Now(), &err)

	query, args, err := postgres.QueryBuilder.
		Insert(RateTable).
		Columns("player_id", "xp_rate").
		Values(playerID, int64(rate)).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build insert")
	}

	return d.exec(ctx, "insert", playerID, rate, query, args)
}

// Update 更新已有的倍率记录
func (d *RateDAO) Update(ctx context.Context, playerID int64, rate uint32) (err error) {
	defer d.record("update", time.Now(), &err)

	query, args, err := postgres.QueryBuilder.
		Update(RateTable).
		Set("xp_rate", int64(rate)).
		Where(squirrel.Eq{"player_id": playerID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build update")
	}

	return d.exec(ctx, "update", playerID, rate, query, args)
}

// Upsert 写入倍率，存在则更新，一条语句完成
func (d *RateDAO) Upsert(ctx context.Context, playerID int64, rate uint32) (err error) {
	defer d.record("upsert", time.Now(), &err)

	query, args, err := postgres.QueryBuilder.
		Insert(RateTable).
		Columns("player_id", "xp_rate").
		Values(playerID, int64(rate)).
		Suffix("ON CONFLICT (player_id) DO UPDATE SET xp_rate = EXCLUDED.xp_rate").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build upsert")
	}

	return d.exec(ctx, "upsert", playerID, rate, query, args)
}

// Delete 删除玩家的倍率记录，记录不存在时不报错
func (d *RateDAO) Delete(ctx context.Context, playerID int64) (err error) {
	defer d.record("delete", time.Now(), &err)

	query, args, err := postgres.QueryBuilder.
		Delete(RateTable).
		Where(squirrel.Eq{"player_id": playerID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build delete")
	}

	if _, err = d.db.Exec(ctx, query, args...); err != nil {
		d.logger.Error("failed to delete xp rate",
			"player_id", playerID,
			"error", err,
		)
		return errors.Wrapf(err, "failed to delete xp rate of player %d", playerID)
	}
	return nil
}

func (d *RateDAO) exec(ctx context.Context, op string, playerID int64, rate uint32, query string, args []any) error {
	if _, err := d.db.Exec(ctx, query, args...); err != nil {
		d.logger.Error("failed to write xp rate",
			"operation", op,
			"player_id", playerID,
			"xp_rate", rate,
			"error", err,
		)
		return errors.Wrapf(err, "failed to %s xp rate of player %d", op, playerID)
	}
	return nil
}

// Migrate 执行内嵌的建表脚本
func Migrate(ctx context.Context, runner ScriptRunner, l logger.Logger) error {
	scripts, err := migrations.Scripts()
	if err != nil {
		return errors.Wrap(err, "failed to load migrations")
	}

	for _, s := range scripts {
		if err := runner.ExecScript(ctx, s.SQL); err != nil {
			return errors.Wrapf(err, "migration %s failed", s.Name)
		}
		l.Info("migration applied", "name", s.Name)
	}
	return nil
}
