// Package persistence stores processing runs in SQLite: the enriched
// settlements of each run and the trade flows routed between them.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/burgecon/internal/economy"
	"github.com/talgya/burgecon/internal/trade"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Run is the metadata row of one processing run.
type Run struct {
	ID          string    `db:"id" json:"id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	Source      string    `db:"source" json:"source"` // Input file, or "generated"
	Seed        int64     `db:"seed" json:"seed"`
	Settlements int       `db:"settlements" json:"settlements"`
	Skipped     int       `db:"skipped" json:"skipped"`
	Flows       int       `db:"flows" json:"flows"`
}

// RunMeta describes where a run's settlements came from.
type RunMeta struct {
	Source string
	Seed   int64
}

// SettlementRow is the stored summary of one enriched settlement.
type SettlementRow struct {
	ID             int     `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	Type           string  `db:"type" json:"type"`
	State          int     `db:"state" json:"state"`
	Population     int     `db:"population" json:"population"`
	Tier           string  `db:"tier" json:"tier"`
	TotalQuartiers int     `db:"nr_quartiers" json:"nr_quartiers"`
	NetFood        float64 `db:"net_food" json:"net_food"`
	NetGold        float64 `db:"net_gold" json:"net_gold"`
	QuartiersJSON  string  `db:"quartiers_json" json:"-"`
}

type flowRow struct {
	FromID    int     `db:"from_id"`
	FromName  string  `db:"from_name"`
	ToID      int     `db:"to_id"`
	ToName    string  `db:"to_name"`
	Commodity string  `db:"commodity"`
	Amount    float64 `db:"amount"`
	Distance  float64 `db:"distance"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		source TEXT NOT NULL,
		seed INTEGER NOT NULL,
		settlements INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		flows INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settlements (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		state INTEGER NOT NULL,
		population INTEGER NOT NULL,
		tier TEXT NOT NULL,
		nr_quartiers INTEGER NOT NULL,
		net_food REAL NOT NULL,
		net_gold REAL NOT NULL,
		quartiers_json TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE TABLE IF NOT EXISTS trade_flows (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		from_id INTEGER NOT NULL,
		from_name TEXT NOT NULL,
		to_id INTEGER NOT NULL,
		to_name TEXT NOT NULL,
		commodity TEXT NOT NULL,
		amount REAL NOT NULL,
		distance REAL NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_flows_commodity ON trade_flows(run_id, commodity);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveRun writes one run with its settlements and flows in a single
// transaction and returns the new run id.
func (db *DB) SaveRun(meta RunMeta, res economy.Result, flows []trade.Flow) (string, error) {
	id := uuid.NewString()
	slog.Info("saving run", "run", id, "settlements", len(res.Settlements), "flows", len(flows))

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, created_at, source, seed, settlements, skipped, flows)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC(), meta.Source, meta.Seed,
		len(res.Settlements), len(res.Skipped), len(flows),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Preparex(`INSERT INTO settlements
		(run_id, seq, id, name, type, state, population, tier, nr_quartiers,
		 net_food, net_gold, quartiers_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, s := range res.Settlements {
		quartiersJSON, err := json.Marshal(s.Quartiers)
		if err != nil {
			return "", fmt.Errorf("encode quartiers of %d: %w", s.ID, err)
		}
		_, err = stmt.Exec(
			id, i, s.ID, s.Name, s.Type, s.State, s.Population, s.Tier,
			s.TotalQuartiers, s.Net.Food, s.Net.Gold, string(quartiersJSON),
		)
		if err != nil {
			return "", fmt.Errorf("insert settlement %d: %w", s.ID, err)
		}
	}

	for i, f := range flows {
		_, err := tx.Exec(`INSERT INTO trade_flows
			(run_id, seq, from_id, from_name, to_id, to_name, commodity, amount, distance)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, f.From, f.FromName, f.To, f.ToName, string(f.Commodity), f.Amount, f.Distance,
		)
		if err != nil {
			return "", fmt.Errorf("insert flow %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Runs lists stored runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT id, created_at, source, seed, settlements, skipped, flows FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// GetRun loads one run's metadata.
func (db *DB) GetRun(id string) (Run, error) {
	var run Run
	err := db.conn.Get(&run,
		"SELECT id, created_at, source, seed, settlements, skipped, flows FROM runs WHERE id = ?", id)
	return run, err
}

// LoadSettlements returns a run's settlements in processing order.
func (db *DB) LoadSettlements(runID string) ([]SettlementRow, error) {
	var rows []SettlementRow
	err := db.conn.Select(&rows, `SELECT id, name, type, state, population, tier,
		nr_quartiers, net_food, net_gold, quartiers_json
		FROM settlements WHERE run_id = ? ORDER BY seq`, runID)
	return rows, err
}

// LoadFlows returns a run's flows in routing order.
func (db *DB) LoadFlows(runID string) ([]trade.Flow, error) {
	var rows []flowRow
	err := db.conn.Select(&rows, `SELECT from_id, from_name, to_id, to_name,
		commodity, amount, distance
		FROM trade_flows WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}

	flows := make([]trade.Flow, len(rows))
	for i, r := range rows {
		flows[i] = trade.Flow{
			From:      r.FromID,
			FromName:  r.FromName,
			To:        r.ToID,
			ToName:    r.ToName,
			Commodity: economy.Commodity(r.Commodity),
			Amount:    r.Amount,
			Distance:  r.Distance,
		}
	}
	return flows, nil
}

// Quartiers decodes the stored per-archetype quartier counts.
func (r SettlementRow) Quartiers() (map[string]int, error) {
	var q map[string]int
	err := json.Unmarshal([]byte(r.QuartiersJSON), &q)
	return q, err
}
