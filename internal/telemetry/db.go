package telemetry

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists the tick tape and final result records to SQLite, grounded
// on the schema-version migration idiom used for the pack's local DB layers.
type Store struct {
	sql *sql.DB
}

// OpenStore opens (or creates) the SQLite database at path and runs
// migrations.
func OpenStore(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("telemetry: open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("telemetry: ping db: %w", err)
	}
	s := &Store{sql: sqlDB}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("telemetry: migrate db: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.sql.Close()
}

func (s *Store) migrate() error {
	var version int
	s.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := s.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS ticks (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id  TEXT NOT NULL,
				timestamp   TEXT NOT NULL,
				wmp         REAL NOT NULL,
				fair_price  REAL NOT NULL,
				reservation REAL NOT NULL,
				our_bid     REAL NOT NULL,
				our_ask     REAL NOT NULL,
				inventory   REAL NOT NULL,
				cash        REAL NOT NULL,
				pnl         REAL NOT NULL,
				gamma       REAL NOT NULL,
				sigma       REAL NOT NULL,
				q00         REAL NOT NULL,
				r00         REAL NOT NULL,
				kappa       REAL NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_ticks_session ON ticks(session_id);

			CREATE TABLE IF NOT EXISTS results (
				id               INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id       TEXT NOT NULL,
				timestamp        TEXT NOT NULL,
				market           TEXT NOT NULL,
				token_seguido    TEXT NOT NULL,
				modo_real        INTEGER NOT NULL,
				pnl_final        REAL NOT NULL,
				inventario_final REAL NOT NULL,
				cash_final       REAL NOT NULL,
				kappa_calibrada  REAL NOT NULL
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return err
		}
		version = 1
	}

	if version < 2 {
		_, err := s.sql.Exec(`
			ALTER TABLE ticks ADD COLUMN toxicity REAL NOT NULL DEFAULT 0;
			ALTER TABLE ticks ADD COLUMN flow_multiplier REAL NOT NULL DEFAULT 1;

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return err
		}
	}
	return nil
}

// AppendRow inserts one tick row for sessionID.
func (s *Store) AppendRow(sessionID string, row Row) error {
	_, err := s.sql.Exec(
		`INSERT INTO ticks (session_id, timestamp, wmp, fair_price, reservation, our_bid, our_ask, inventory, cash, pnl, gamma, sigma, q00, r00, kappa, toxicity, flow_multiplier)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, row.Timestamp.Format(time.RFC3339Nano),
		row.WMP, row.FairPrice, row.Reservation, row.OurBid, row.OurAsk,
		row.Inventory, row.Cash, row.PnL, row.Gamma, row.Sigma, row.Q00, row.R00, row.Kappa,
		row.Toxicity, row.FlowMultiplier,
	)
	if err != nil {
		return fmt.Errorf("telemetry: append row: %w", err)
	}
	return nil
}

// Result is the final shutdown record for a session, mirroring the CSV row
// written alongside it.
type Result struct {
	Timestamp       time.Time
	Market          string
	TokenSeguido    string
	ModoReal        bool
	PnLFinal        float64
	InventarioFinal float64
	CashFinal       float64
	KappaCalibrada  float64
}

// AppendResult inserts the final result record for sessionID.
func (s *Store) AppendResult(sessionID string, r Result) error {
	_, err := s.sql.Exec(
		`INSERT INTO results (session_id, timestamp, market, token_seguido, modo_real, pnl_final, inventario_final, cash_final, kappa_calibrada)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, r.Timestamp.Format(time.RFC3339Nano), r.Market, r.TokenSeguido,
		boolToInt(r.ModoReal), r.PnLFinal, r.InventarioFinal, r.CashFinal, r.KappaCalibrada,
	)
	if err != nil {
		return fmt.Errorf("telemetry: append result: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
