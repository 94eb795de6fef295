package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `mapstructure:"max_conns"`
	MinConns int32 `mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS rule_sets (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	vendor_code      TEXT NOT NULL,
	vendor_name      TEXT NOT NULL,
	version_id       TEXT NOT NULL,
	rates_by_vehicle JSONB NOT NULL,
	-- json, not jsonb: vehicle column order is significant.
	vehicle_types    JSON NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_rule_sets_vendor ON rule_sets(vendor_code, version_id);
CREATE INDEX IF NOT EXISTS idx_rule_sets_created_at ON rule_sets(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveRuleSet(ctx context.Context, rs ratecard.CustomRuleSet) (string, error) {
	rates, vehicles, err := encodeRuleSet(rs)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO rule_sets (id, vendor_code, vendor_name, version_id, rates_by_vehicle, vehicle_types, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, rs.VendorCode, rs.VendorName, rs.VersionID, string(rates), string(vehicles), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert rule set")
	}
	return id, nil
}

func (s *PostgresStore) GetRuleSet(ctx context.Context, id string) (*RuleSet, error) {
	var rs RuleSet
	var rates, vehicles []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, vendor_code, vendor_name, version_id, rates_by_vehicle::text, vehicle_types::text, created_at FROM rule_sets WHERE id = $1`,
		id,
	).Scan(&rs.ID, &rs.VendorCode, &rs.VendorName, &rs.VersionID, &rates, &vehicles, &rs.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "rule set %s not found", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get rule set %s", id)
	}
	if err := decodeRuleSet(&rs, rates, vehicles); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (s *PostgresStore) ListRuleSets(ctx context.Context, filter RuleSetFilter) ([]RuleSet, error) {
	query := `SELECT id, vendor_code, vendor_name, version_id, rates_by_vehicle::text, vehicle_types::text, created_at FROM rule_sets WHERE true`
	args := []any{}
	argIdx := 1

	if filter.VendorCode != "" {
		query += fmt.Sprintf(` AND vendor_code = $%d`, argIdx)
		args = append(args, filter.VendorCode)
		argIdx++
	}
	if filter.VersionID != "" {
		query += fmt.Sprintf(` AND version_id = $%d`, argIdx)
		args = append(args, filter.VersionID)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list rule sets")
	}
	defer rows.Close()

	var out []RuleSet
	for rows.Next() {
		var rs RuleSet
		var rates, vehicles []byte
		if err := rows.Scan(&rs.ID, &rs.VendorCode, &rs.VendorName, &rs.VersionID, &rates, &vehicles, &rs.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rule set")
		}
		if err := decodeRuleSet(&rs, rates, vehicles); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list rule sets iterate")
}

func (s *PostgresStore) DeleteRuleSet(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rule_sets WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete rule set %s", id)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.KindNotFound, "rule set %s not found", id)
	}
	return nil
}
