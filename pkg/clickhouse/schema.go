package clickhouse

import "fmt"

// TradeSchema returns the idempotent DDL for the paper trade mirror table.
func TradeSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
    ts      DateTime64(3),
    symbol  LowCardinality(String),
    action  LowCardinality(String),
    price   Float64,
    volume  Float64,
    tp      Float64,
    sl      Float64,
    reason  String,
    score   UInt8
) ENGINE = MergeTree
ORDER BY (symbol, ts)`, database, table),
	}
}
