// Package report stores compilation reports in a SQLite database.
package report

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/PRL-PRG/r-compile-server-sub002/compiler"
	"github.com/PRL-PRG/r-compile-server-sub002/ir"
)

// ErrNotFound indicates the requested report doesn't exist.
var ErrNotFound = errors.New("report not found")

// Status is the outcome of one compilation.
type Status string

const (
	StatusOK          Status = "ok"
	StatusUnsupported Status = "unsupported"
	StatusMissingBody Status = "missing-body"
	StatusInternal    Status = "internal"
)

// Report describes one compiled function.
type Report struct {
	ID          int64
	Run         uuid.UUID
	Fixture     string
	Function    string
	Status      Status
	Error       string
	Blocks      int
	Fingerprint uint64
	Problems    []ir.Problem
	History     []ir.HistoryEntry
	Created     time.Time
}

// New builds a report from a compilation result. g may be partial when err
// is set.
func New(run uuid.UUID, fixture string, g *ir.CFG, err error) *Report {
	r := &Report{
		Run:     run,
		Fixture: fixture,
		Status:  StatusOK,
		Created: time.Now().UTC(),
	}
	if g != nil {
		r.Function = g.Name()
		r.Blocks = g.Len()
		r.Fingerprint = g.Fingerprint()
		r.History = g.History()
	}
	if err != nil {
		r.Error = err.Error()
		r.Status = Classify(err)
		var internal *compiler.InternalError
		if errors.As(err, &internal) {
			r.Problems = internal.Problems
		}
	}
	return r
}

// Classify maps a compiler error to a status.
func Classify(err error) Status {
	var (
		unsupported *compiler.UnsupportedError
		missing     *compiler.MissingBodyError
	)
	switch {
	case err == nil:
		return StatusOK
	case errors.As(err, &unsupported):
		return StatusUnsupported
	case errors.As(err, &missing):
		return StatusMissingBody
	}
	return StatusInternal
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("report: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Store persists reports.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run TEXT NOT NULL,
		fixture TEXT NOT NULL,
		function TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL,
		blocks INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		problems BLOB,
		history BLOB,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save inserts r and sets its ID.
func (s *Store) Save(r *Report) error {
	problems, err := cborEncMode.Marshal(r.Problems)
	if err != nil {
		return fmt.Errorf("encoding problems: %w", err)
	}
	history, err := cborEncMode.Marshal(r.History)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`INSERT INTO reports (run, fixture, function, status, error, blocks, fingerprint, problems, history, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Run.String(), r.Fixture, r.Function, string(r.Status), r.Error, r.Blocks,
		strconv.FormatUint(r.Fingerprint, 16), problems, history, r.Created.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

const selectReport = `SELECT id, run, fixture, function, status, error, blocks, fingerprint, problems, history, created FROM reports`

// Load retrieves one report.
func (s *Store) Load(id int64) (*Report, error) {
	r, err := scanReport(s.db.QueryRow(selectReport+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// List returns the reports of a run in insertion order.
func (s *Store) List(run uuid.UUID) ([]*Report, error) {
	rows, err := s.db.Query(selectReport+` WHERE run = ? ORDER BY id`, run.String())
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()
	var out []*Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Counts tallies the statuses of a run.
func (s *Store) Counts(run uuid.UUID) (map[Status]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM reports WHERE run = ? GROUP BY status`, run.String())
	if err != nil {
		return nil, fmt.Errorf("counting reports: %w", err)
	}
	defer rows.Close()
	out := map[Status]int{}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("counting reports: %w", err)
		}
		out[Status(st)] = n
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*Report, error) {
	var (
		r                 Report
		run, status, fp   string
		problems, history []byte
		created           int64
	)
	err := row.Scan(&r.ID, &run, &r.Fixture, &r.Function, &status, &r.Error, &r.Blocks, &fp, &problems, &history, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("reading report: %w", err)
	}
	if r.Run, err = uuid.Parse(run); err != nil {
		return nil, fmt.Errorf("report %d: bad run id: %w", r.ID, err)
	}
	if r.Fingerprint, err = strconv.ParseUint(fp, 16, 64); err != nil {
		return nil, fmt.Errorf("report %d: bad fingerprint: %w", r.ID, err)
	}
	if len(problems) > 0 {
		if err := cbor.Unmarshal(problems, &r.Problems); err != nil {
			return nil, fmt.Errorf("report %d: decoding problems: %w", r.ID, err)
		}
	}
	if len(history) > 0 {
		if err := cbor.Unmarshal(history, &r.History); err != nil {
			return nil, fmt.Errorf("report %d: decoding history: %w", r.ID, err)
		}
	}
	r.Status = Status(status)
	r.Created = time.Unix(0, created).UTC()
	return &r, nil
}
