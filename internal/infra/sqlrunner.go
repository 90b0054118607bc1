package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor is the query surface repositories depend on. *SQLRunner and
// pgx transactions both satisfy it.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// TxExecutor is a SQLExecutor that can also run a group of statements in
// one transaction.
type TxExecutor interface {
	SQLExecutor
	InTx(ctx context.Context, fn func(tx SQLExecutor) error) error
}

// ErrUnmarkedQuery is returned for statements that do not open with a
// "--sql <uuid>" line.
var ErrUnmarkedQuery = errors.New("sql: statement has no --sql marker")

var markerLine = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)

// Statement is a query split into its marker and executable body.
type Statement struct {
	Marker string
	Body   string
}

// ParseStatement splits query at its first line. The marker identifies the
// statement in logs so query text and arguments never reach them.
func ParseStatement(query string) (Statement, error) {
	head, body, _ := strings.Cut(strings.TrimSpace(query), "\n")
	m := markerLine.FindStringSubmatch(strings.TrimSpace(head))
	if m == nil {
		return Statement{}, ErrUnmarkedQuery
	}
	return Statement{Marker: m[1], Body: strings.TrimSpace(body)}, nil
}

// conn is the part of a pool or transaction the runner drives. Both
// *pgxpool.Pool and pgx.Tx satisfy it.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SQLRunner executes marker-tagged statements on a pool.
type SQLRunner struct {
	pool   *pgxpool.Pool
	db     conn
	logger zerolog.Logger
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return newRunner(pool, pool, logger.With().Str("component", "sql").Logger())
}

func newRunner(pool *pgxpool.Pool, db conn, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{pool: pool, db: db, logger: logger}
}

// Ping checks that the database answers.
func (r *SQLRunner) Ping(ctx context.Context) error {
	if r.pool == nil {
		return errors.New("sql: no pool")
	}
	return r.pool.Ping(ctx)
}

// InTx runs fn in one transaction. It commits when fn returns nil and rolls
// back otherwise.
func (r *SQLRunner) InTx(ctx context.Context, fn func(tx SQLExecutor) error) error {
	start := time.Now()
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(newRunner(nil, tx, r.logger))
	})
	ev := r.logger.Debug()
	if err != nil {
		ev = r.logger.Warn().Err(err)
	}
	ev.Str("op", "tx").Dur("took", time.Since(start)).Send()
	return err
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	stmt, err := ParseStatement(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.db.Exec(ctx, stmt.Body, args...)
	r.done(stmt.Marker, "exec", start, err).Int64("rows", tag.RowsAffected()).Send()
	return tag, err
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	stmt, err := ParseStatement(query)
	if err != nil {
		return failedRow{err: err}
	}
	return &scanLogger{row: r.db.QueryRow(ctx, stmt.Body, args...), runner: r, marker: stmt.Marker, start: time.Now()}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	stmt, err := ParseStatement(query)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := r.db.Query(ctx, stmt.Body, args...)
	r.done(stmt.Marker, "query", start, err).Send()
	return rows, err
}

// done starts the log event for a finished statement. Misses are not
// errors.
func (r *SQLRunner) done(marker, op string, start time.Time, err error) *zerolog.Event {
	ev := r.logger.Debug()
	if err != nil && !IsNoRows(err) {
		ev = r.logger.Error().Err(err)
	}
	return ev.Str("marker", marker).Str("op", op).Dur("took", time.Since(start))
}

type scanLogger struct {
	row    pgx.Row
	runner *SQLRunner
	marker string
	start  time.Time
}

func (s *scanLogger) Scan(dest ...any) error {
	err := s.row.Scan(dest...)
	s.runner.done(s.marker, "query_row", s.start, err).Send()
	return err
}

type failedRow struct{ err error }

func (f failedRow) Scan(...any) error { return f.err }

// IsNoRows reports whether err signals an empty result set.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

var _ TxExecutor = (*SQLRunner)(nil)
