package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var log = logrus.WithField("component", "recorder")

// SQLiteRecorder persists the journal to a SQLite database. Money and
// quantities are stored as exact decimal text.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infof("sqlite journal opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rotations (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			from_index  INTEGER,
			from_symbol TEXT,
			to_index    INTEGER,
			to_symbol   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rotations_ts ON rotations(timestamp)`,

		`CREATE TABLE IF NOT EXISTS decisions (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp            INTEGER NOT NULL,
			symbol               TEXT,
			kind                 TEXT,
			victim_symbol        TEXT,
			victim_instrument_id TEXT,
			reason               TEXT,
			buying_power         TEXT,
			total_equity         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(timestamp)`,

		`CREATE TABLE IF NOT EXISTS executions (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp          INTEGER NOT NULL,
			side               TEXT,
			symbol             TEXT,
			outcome            TEXT,
			order_id           TEXT,
			client_order_id    TEXT,
			quantity           TEXT,
			filled_price       TEXT,
			status             TEXT,
			reason             TEXT,
			buying_power_after TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_ts ON executions(timestamp)`,

		`CREATE TABLE IF NOT EXISTS account_snapshots (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			buying_power TEXT,
			total_equity TEXT,
			holdings     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_account_ts ON account_snapshots(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRotation(evt *RotationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO rotations
		(timestamp, from_index, from_symbol, to_index, to_symbol)
		VALUES (?,?,?,?,?)`,
		r.now().Unix(), evt.FromIndex, evt.FromSymbol, evt.ToIndex, evt.ToSymbol,
	)
	return err
}

func (r *SQLiteRecorder) RecordDecision(evt *DecisionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO decisions
		(timestamp, symbol, kind, victim_symbol, victim_instrument_id, reason, buying_power, total_equity)
		VALUES (?,?,?,?,?,?,?,?)`,
		r.now().Unix(), evt.Symbol, evt.Kind, evt.VictimSymbol, evt.VictimInstrumentID,
		evt.Reason, evt.BuyingPower.String(), evt.TotalEquity.String(),
	)
	return err
}

func (r *SQLiteRecorder) RecordExecution(evt *ExecutionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO executions
		(timestamp, side, symbol, outcome, order_id, client_order_id,
		 quantity, filled_price, status, reason, buying_power_after)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		r.now().Unix(), evt.Side, evt.Symbol, evt.Outcome, evt.OrderID, evt.ClientOrderID,
		evt.Quantity.String(), evt.FilledPrice.String(), evt.Status, evt.Reason,
		evt.BuyingPowerAfter.String(),
	)
	return err
}

func (r *SQLiteRecorder) RecordAccount(evt *AccountEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO account_snapshots
		(timestamp, buying_power, total_equity, holdings)
		VALUES (?,?,?,?)`,
		r.now().Unix(), evt.BuyingPower.String(), evt.TotalEquity.String(), evt.Holdings,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info("closing sqlite journal")
	return r.db.Close()
}
