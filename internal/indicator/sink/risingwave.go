// Package sink issues the schema-on-write DDL that binds a RisingWave
// table to the technical_indicators Kafka topic (spec.md §4.3/§6),
// translated from the original's psycopg2-based table.py to pgx/v5 since
// RisingWave speaks the Postgres wire protocol.
package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Config names the connection and schema parameters the DDL needs.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	TableName       string
	KafkaTopic      string
	KafkaBroker     string
	IndicatorPeriods []int
}

// EnsureTable connects to RisingWave and issues the CREATE TABLE DDL if
// the table is not already present, matching the original's
// information_schema.tables idempotency check. Sink-store failures are
// logged and non-fatal (spec.md §7): the caller continues emitting to
// Kafka regardless of the return value.
func EnsureTable(ctx context.Context, cfg Config, logger *zap.Logger) error {
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return fmt.Errorf("connecting to risingwave: %w", err)
	}
	defer conn.Close(ctx)

	exists, err := tableExists(ctx, conn, cfg.TableName)
	if err != nil {
		return fmt.Errorf("checking information_schema.tables: %w", err)
	}
	if exists {
		logger.Info("risingwave table already exists, skipping create", zap.String("table", cfg.TableName))
		return nil
	}

	ddl := buildDDL(cfg)
	if _, err := conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating risingwave table: %w", err)
	}
	logger.Info("created risingwave table", zap.String("table", cfg.TableName))
	return nil
}

func tableExists(ctx context.Context, conn *pgx.Conn, table string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`
	var exists bool
	if err := conn.QueryRow(ctx, query, table).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// buildDDL renders the exact column set spec.md §6 specifies: OHLCV
// floats, window bounds, candle_seconds, one float column per configured
// indicator period, MACD columns, OBV, and the (pair, window_start_ms,
// window_end_ms) primary key.
func buildDDL(cfg Config) string {
	var cols []string
	cols = append(cols,
		"pair VARCHAR",
		"open FLOAT", "high FLOAT", "low FLOAT", "close FLOAT", "volume FLOAT",
		"window_start_ms BIGINT", "window_end_ms BIGINT", "candle_seconds INT",
	)
	for _, p := range cfg.IndicatorPeriods {
		cols = append(cols, fmt.Sprintf("sma_%d FLOAT", p))
	}
	for _, p := range cfg.IndicatorPeriods {
		cols = append(cols, fmt.Sprintf("ema_%d FLOAT", p))
	}
	for _, p := range cfg.IndicatorPeriods {
		cols = append(cols, fmt.Sprintf("rsi_%d FLOAT", p))
	}
	cols = append(cols, "macd_7 FLOAT", "macdsignal_7 FLOAT", "macdhist_7 FLOAT", "obv FLOAT")
	cols = append(cols, "PRIMARY KEY(pair, window_start_ms, window_end_ms)")

	return fmt.Sprintf(
		"CREATE TABLE %s (%s) WITH (connector='kafka', topic='%s', properties.bootstrap.server='%s') FORMAT PLAIN ENCODE JSON;",
		cfg.TableName, strings.Join(cols, ", "), cfg.KafkaTopic, cfg.KafkaBroker,
	)
}
