package storage

// sqlite.go: journal de órdenes y trades simulados.
//
// Estrategia:
//   - `sim_orders` y `sim_trades`: UNA fila por id (UPSERT). El engine solo
//     journalea lo que cambió en el tick, así que cada transición es un write.
//   - Tiempos como TEXT UTC con nanos de ancho fijo: ordenan lexicográficamente.
//   - Prune automático al arrancar: filas terminadas de más de 30d.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/updown/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS sim_orders (
    id           TEXT PRIMARY KEY,
    instrument   TEXT NOT NULL,
    variant_id   TEXT NOT NULL,
    family       TEXT NOT NULL,
    market_slug  TEXT NOT NULL,
    market_start TEXT NOT NULL,
    side         TEXT NOT NULL,
    price        REAL NOT NULL,
    size         REAL NOT NULL,
    limit_price  REAL NOT NULL,
    status       TEXT NOT NULL,
    filled_size  REAL NOT NULL DEFAULT 0,
    created_at   TEXT NOT NULL,
    updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sim_trades (
    id           TEXT PRIMARY KEY,
    order_id     TEXT NOT NULL,
    instrument   TEXT NOT NULL,
    variant_id   TEXT NOT NULL,
    family       TEXT NOT NULL,
    market_slug  TEXT NOT NULL,
    market_start TEXT NOT NULL,
    side         TEXT NOT NULL,
    entry_price  REAL NOT NULL,
    size         REAL NOT NULL,
    filled_size  REAL NOT NULL,
    invested     REAL NOT NULL,
    entry_time   TEXT NOT NULL,
    result       TEXT NOT NULL,
    resolved_at  TEXT,
    pnl          REAL
);

CREATE INDEX IF NOT EXISTS idx_orders_instr  ON sim_orders(instrument, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_instr  ON sim_trades(instrument, entry_time DESC);
CREATE INDEX IF NOT EXISTS idx_trades_result ON sim_trades(result);
`

const (
	retention  = 30 * 24 * time.Hour
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLiteJournal implementa ports.Journal y ports.JournalReader usando
// SQLite (pure Go, sin CGo).
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal abre (o crea) la base de datos en la ruta dada, aplica
// el schema y limpia datos antiguos.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteJournal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteJournal: apply schema: %w", err)
	}

	j := &SQLiteJournal{db: db}
	j.pruneOld(context.Background(), time.Now())
	return j, nil
}

// SaveOrder hace upsert de una orden.
func (j *SQLiteJournal) SaveOrder(ctx context.Context, o domain.SimOrder) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sim_orders
			(id, instrument, variant_id, family, market_slug, market_start, side,
			 price, size, limit_price, status, filled_size, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status      = excluded.status,
			filled_size = excluded.filled_size,
			limit_price = excluded.limit_price,
			updated_at  = excluded.updated_at
	`,
		o.ID, string(o.Instrument), o.VariantID, string(o.Family), o.MarketSlug, formatTime(o.MarketStart),
		string(o.Side), o.Price, o.Size, o.LimitPrice, string(o.Status), o.FilledSize,
		formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveOrder %s: %w", o.ID, err)
	}
	return nil
}

// SaveTrade hace upsert de un trade.
func (j *SQLiteJournal) SaveTrade(ctx context.Context, t domain.Trade) error {
	var resolvedAt sql.NullString
	if t.ResolvedAt != nil {
		resolvedAt = sql.NullString{String: formatTime(*t.ResolvedAt), Valid: true}
	}
	var pnl sql.NullFloat64
	if t.PnL != nil {
		pnl = sql.NullFloat64{Float64: *t.PnL, Valid: true}
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sim_trades
			(id, order_id, instrument, variant_id, family, market_slug, market_start, side,
			 entry_price, size, filled_size, invested, entry_time, result, resolved_at, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			result      = excluded.result,
			resolved_at = excluded.resolved_at,
			pnl         = excluded.pnl
	`,
		t.ID, t.OrderID, string(t.Instrument), t.VariantID, string(t.Family), t.MarketSlug, formatTime(t.MarketStart),
		string(t.Side), t.EntryPrice, t.Size, t.FilledSize, t.Invested, formatTime(t.EntryTime),
		string(t.Result), resolvedAt, pnl,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade %s: %w", t.ID, err)
	}
	return nil
}

// ListOrders devuelve las órdenes del instrumento (todas si in == ""),
// más reciente primero.
func (j *SQLiteJournal) ListOrders(ctx context.Context, in domain.Instrument) ([]domain.SimOrder, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, instrument, variant_id, family, market_slug, market_start, side,
		       price, size, limit_price, status, filled_size, created_at, updated_at
		FROM sim_orders
		WHERE ? = '' OR instrument = ?
		ORDER BY created_at DESC
	`, string(in), string(in))
	if err != nil {
		return nil, fmt.Errorf("storage.ListOrders: query: %w", err)
	}
	defer rows.Close()

	var orders []domain.SimOrder
	for rows.Next() {
		var o domain.SimOrder
		var instr, family, side, status, marketStart, created, updated string
		if err := rows.Scan(
			&o.ID, &instr, &o.VariantID, &family, &o.MarketSlug, &marketStart, &side,
			&o.Price, &o.Size, &o.LimitPrice, &status, &o.FilledSize, &created, &updated,
		); err != nil {
			return nil, fmt.Errorf("storage.ListOrders: scan row: %w", err)
		}
		o.Instrument = domain.Instrument(instr)
		o.Family = domain.Family(family)
		o.Side = domain.Side(side)
		o.Status = domain.OrderStatus(status)
		o.MarketStart = parseTime(marketStart)
		o.CreatedAt = parseTime(created)
		o.UpdatedAt = parseTime(updated)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListTrades devuelve los trades del instrumento (todos si in == ""),
// más reciente primero.
func (j *SQLiteJournal) ListTrades(ctx context.Context, in domain.Instrument) ([]domain.Trade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, order_id, instrument, variant_id, family, market_slug, market_start, side,
		       entry_price, size, filled_size, invested, entry_time, result, resolved_at, pnl
		FROM sim_trades
		WHERE ? = '' OR instrument = ?
		ORDER BY entry_time DESC
	`, string(in), string(in))
	if err != nil {
		return nil, fmt.Errorf("storage.ListTrades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var instr, family, side, result, marketStart, entry string
		var resolvedAt sql.NullString
		var pnl sql.NullFloat64
		if err := rows.Scan(
			&t.ID, &t.OrderID, &instr, &t.VariantID, &family, &t.MarketSlug, &marketStart, &side,
			&t.EntryPrice, &t.Size, &t.FilledSize, &t.Invested, &entry, &result, &resolvedAt, &pnl,
		); err != nil {
			return nil, fmt.Errorf("storage.ListTrades: scan row: %w", err)
		}
		t.Instrument = domain.Instrument(instr)
		t.Family = domain.Family(family)
		t.Side = domain.Side(side)
		t.Result = domain.TradeResult(result)
		t.MarketStart = parseTime(marketStart)
		t.EntryTime = parseTime(entry)
		if resolvedAt.Valid {
			ts := parseTime(resolvedAt.String)
			t.ResolvedAt = &ts
		}
		if pnl.Valid {
			v := pnl.Float64
			t.PnL = &v
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// --- helpers internos ---

// pruneOld elimina órdenes terminadas y trades resueltos antiguos.
func (j *SQLiteJournal) pruneOld(ctx context.Context, now time.Time) {
	cutoff := formatTime(now.Add(-retention))
	j.db.ExecContext(ctx, `DELETE FROM sim_orders WHERE status IN ('filled','cancelled','expired') AND updated_at < ?`, cutoff)
	j.db.ExecContext(ctx, `DELETE FROM sim_trades WHERE result != 'pending' AND resolved_at < ?`, cutoff)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
