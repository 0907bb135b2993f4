package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordFill(r FillRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(fill_id, symbol, side, quantity, price, time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.FillID, r.Symbol, r.Side, r.Quantity, r.Price, r.Time,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, balance, equity, total_pnl, open_positions)
		VALUES (?, ?, ?, ?, ?)`,
		e.Time, e.Balance, e.Equity, e.TotalPnL, e.OpenPositions,
	)
	return err
}

// Fills returns the session's fills for a symbol, oldest first.
func (j *SQLiteJournal) Fills(symbol string) ([]FillRecord, error) {
	rows, err := j.db.Query(`
		SELECT fill_id, symbol, side, quantity, price, time
		FROM fills WHERE symbol = ? ORDER BY time`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		var r FillRecord
		if err := rows.Scan(&r.FillID, &r.Symbol, &r.Side, &r.Quantity, &r.Price, &r.Time); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
