package metrics

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	sn "github.com/sharnoff/splitnet"
)

const schema = `CREATE TABLE IF NOT EXISTS results (
	run_id         TEXT NOT NULL,
	iter           INTEGER NOT NULL,
	lagrangian     REAL,
	loss           REAL,
	max_defect     REAL,
	rollout_loss   REAL,
	train_accuracy REAL,
	test_loss      REAL,
	test_accuracy  REAL,
	elapsed_s      REAL,
	final          INTEGER NOT NULL,
	entry          TEXT NOT NULL
)`

// OpenSQLite opens (creating if necessary) a SQLite database of results at the given path
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open metrics database %q", path)
	}

	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "Failed to create results table in %q", path)
	}

	return db, nil
}

type sqliteRecorder struct {
	db    *sql.DB
	runID string
}

// SQLite returns a Recorder that inserts each Result as a row of the "results" table of a database
// opened by OpenSQLite. The full Entry is also kept as JSON.
func SQLite(db *sql.DB, runID string) Recorder {
	return sqliteRecorder{db, runID}
}

func (s sqliteRecorder) Record(r sn.Result) error {
	e := NewEntry(s.runID, r)
	js, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "Failed to encode result")
	}

	_, err = s.db.ExecContext(context.Background(),
		`INSERT INTO results (run_id, iter, lagrangian, loss, max_defect, rollout_loss,
			train_accuracy, test_loss, test_accuracy, elapsed_s, final, entry)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Iteration, e.Lagrangian, e.Loss, e.MaxDefect, e.RolloutLoss,
		e.TrainAccuracy, e.TestLoss, e.TestAccuracy, e.ElapsedSeconds, e.Final, string(js),
	)

	return errors.Wrap(err, "Failed to insert result")
}

// LoadRun returns the stored Entries of a run, ordered by insertion
func LoadRun(ctx context.Context, db *sql.DB, runID string) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, `SELECT entry FROM results WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to query results")
	}
	defer rows.Close()

	var es []Entry
	for rows.Next() {
		var js string
		if err := rows.Scan(&js); err != nil {
			return nil, errors.Wrap(err, "Failed to read result")
		}

		var e Entry
		if err := json.Unmarshal([]byte(js), &e); err != nil {
			return nil, errors.Wrap(err, "Failed to decode result")
		}
		es = append(es, e)
	}

	return es, errors.Wrap(rows.Err(), "Failed to read results")
}
