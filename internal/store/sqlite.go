package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/invoice-agent/internal/apperr"
	"github.com/sells-group/invoice-agent/internal/ratecard"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS rule_sets (
	id               TEXT PRIMARY KEY,
	vendor_code      TEXT NOT NULL,
	vendor_name      TEXT NOT NULL,
	version_id       TEXT NOT NULL,
	rates_by_vehicle TEXT NOT NULL,
	vehicle_types    TEXT NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_rule_sets_vendor ON rule_sets(vendor_code, version_id);
CREATE INDEX IF NOT EXISTS idx_rule_sets_created_at ON rule_sets(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRuleSet(ctx context.Context, rs ratecard.CustomRuleSet) (string, error) {
	rates, vehicles, err := encodeRuleSet(rs)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rule_sets (id, vendor_code, vendor_name, version_id, rates_by_vehicle, vehicle_types, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, rs.VendorCode, rs.VendorName, rs.VersionID, string(rates), string(vehicles), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert rule set")
	}
	return id, nil
}

func (s *SQLiteStore) GetRuleSet(ctx context.Context, id string) (*RuleSet, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, vendor_code, vendor_name, version_id, rates_by_vehicle, vehicle_types, created_at FROM rule_sets WHERE id = ?`,
		id,
	)
	rs, err := scanRuleSet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.KindNotFound, "rule set %s not found", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get rule set %s", id)
	}
	return rs, nil
}

func (s *SQLiteStore) ListRuleSets(ctx context.Context, filter RuleSetFilter) ([]RuleSet, error) {
	query := `SELECT id, vendor_code, vendor_name, version_id, rates_by_vehicle, vehicle_types, created_at FROM rule_sets WHERE 1=1`
	var args []any

	if filter.VendorCode != "" {
		query += ` AND vendor_code = ?`
		args = append(args, filter.VendorCode)
	}
	if filter.VersionID != "" {
		query += ` AND version_id = ?`
		args = append(args, filter.VersionID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list rule sets")
	}
	defer rows.Close() //nolint:errcheck

	var out []RuleSet
	for rows.Next() {
		rs, err := scanRuleSet(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rule set")
		}
		out = append(out, *rs)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list rule sets iterate")
}

func (s *SQLiteStore) DeleteRuleSet(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rule_sets WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete rule set %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return apperr.Newf(apperr.KindNotFound, "rule set %s not found", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRuleSet(sc scanner) (*RuleSet, error) {
	var rs RuleSet
	var rates, vehicles string
	if err := sc.Scan(&rs.ID, &rs.VendorCode, &rs.VendorName, &rs.VersionID, &rates, &vehicles, &rs.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeRuleSet(&rs, []byte(rates), []byte(vehicles)); err != nil {
		return nil, err
	}
	return &rs, nil
}

func encodeRuleSet(rs ratecard.CustomRuleSet) (rates, vehicles []byte, err error) {
	rates, err = json.Marshal(rs.RatesByVehicle)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal rates")
	}
	vehicles, err = json.Marshal(rs.VehicleTypes)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal vehicle types")
	}
	return rates, vehicles, nil
}

func decodeRuleSet(rs *RuleSet, rates, vehicles []byte) error {
	if err := json.Unmarshal(rates, &rs.RatesByVehicle); err != nil {
		return eris.Wrap(err, "store: unmarshal rates")
	}
	if err := json.Unmarshal(vehicles, &rs.VehicleTypes); err != nil {
		return eris.Wrap(err, "store: unmarshal vehicle types")
	}
	return nil
}
