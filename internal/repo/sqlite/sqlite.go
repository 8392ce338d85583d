// Package sqlite is the default embedded record store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"sitewatch/internal/domain"
	"sitewatch/internal/repo"
)

var _ repo.TargetStore = (*Store)(nil)
var _ repo.HistoryStore = (*Store)(nil)

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS targets (
	id                TEXT PRIMARY KEY,
	kind              TEXT NOT NULL CHECK (kind IN ('url','ip')),
	address           TEXT NOT NULL,
	name              TEXT NOT NULL,
	category          TEXT NOT NULL DEFAULT 'website',
	anomaly_threshold INTEGER NOT NULL DEFAULT 1000,
	notifications     TEXT NOT NULL DEFAULT '{}',
	status            TEXT NOT NULL DEFAULT 'unknown',
	latency_ms        REAL,
	last_check        TIMESTAMP,
	avg_latency_ms    REAL,
	stddev_latency_ms REAL,
	last_error        TEXT,
	last_status_code  INTEGER,
	tls_info          TEXT,
	domain_info       TEXT,
	dns_info          TEXT,
	ip_info           TEXT,
	created_at        TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	target_id   TEXT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
	status      TEXT NOT NULL,
	latency_ms  REAL,
	status_code INTEGER,
	error       TEXT,
	timestamp   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_target_ts ON history(target_id, timestamp);
`

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Add(ctx context.Context, t *domain.Target) error {
	if t.ID == "" {
		t.ID = domain.TargetID(uuid.NewString())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = domain.StatusUnknown
	}
	prefs, err := json.Marshal(t.Notifications)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO targets (id, kind, address, name, category, anomaly_threshold, notifications, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.ID), string(t.Kind), t.Address, t.Name, t.Category,
		t.AnomalyThreshold, string(prefs), string(t.Status), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert target: %w", err)
	}
	return nil
}

const targetColumns = `id, kind, address, name, category, anomaly_threshold, notifications,
	status, latency_ms, last_check, avg_latency_ms, stddev_latency_ms,
	last_error, last_status_code, tls_info, domain_info, dns_info, ip_info, created_at`

func (s *Store) List(ctx context.Context) ([]*domain.Target, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+targetColumns+` FROM targets ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var out []*domain.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id domain.TargetID) (*domain.Target, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM targets WHERE id = ?`, string(id))
	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, repo.ErrNotFound
	}
	return t, err
}

func (s *Store) GetByAddress(ctx context.Context, addr string) (*domain.Target, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM targets WHERE address = ?`, addr)
	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, repo.ErrNotFound
	}
	return t, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTarget(row scanner) (*domain.Target, error) {
	var (
		t          domain.Target
		id, kind   string
		status     string
		prefs      string
		lastCheck  sql.NullTime
		lastErr    sql.NullString
		lastCode   sql.NullInt64
		latency    sql.NullFloat64
		avg, sd    sql.NullFloat64
		tlsJSON    sql.NullString
		domainJSON sql.NullString
		dnsJSON    sql.NullString
		ipJSON     sql.NullString
	)
	err := row.Scan(&id, &kind, &t.Address, &t.Name, &t.Category, &t.AnomalyThreshold, &prefs,
		&status, &latency, &lastCheck, &avg, &sd,
		&lastErr, &lastCode, &tlsJSON, &domainJSON, &dnsJSON, &ipJSON, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.ID = domain.TargetID(id)
	t.Kind = domain.Kind(kind)
	t.Status = domain.Status(status)
	_ = json.Unmarshal([]byte(prefs), &t.Notifications)
	if latency.Valid {
		t.LatencyMS = &latency.Float64
	}
	if lastCheck.Valid {
		t.LastCheck = lastCheck.Time
	}
	if avg.Valid {
		t.AvgLatencyMS = &avg.Float64
	}
	if sd.Valid {
		t.StddevLatencyMS = &sd.Float64
	}
	if lastErr.Valid {
		t.LastError = lastErr.String
	}
	if lastCode.Valid {
		v := int(lastCode.Int64)
		t.LastStatusCode = &v
	}
	decodeBlob(tlsJSON, &t.TLS)
	decodeBlob(domainJSON, &t.Domain)
	decodeBlob(dnsJSON, &t.DNS)
	decodeBlob(ipJSON, &t.IP)
	return &t, nil
}

func decodeBlob[T any](col sql.NullString, dst **T) {
	if !col.Valid || col.String == "" || col.String == "null" {
		return
	}
	var v T
	if err := json.Unmarshal([]byte(col.String), &v); err == nil {
		*dst = &v
	}
}

func encodeBlob(v any) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

func (s *Store) Put(ctx context.Context, t *domain.Target) error {
	prefs, err := json.Marshal(t.Notifications)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE targets SET name = ?, category = ?, anomaly_threshold = ?, notifications = ?
		WHERE id = ?`,
		t.Name, t.Category, t.AnomalyThreshold, string(prefs), string(t.ID),
	)
	if err != nil {
		return fmt.Errorf("put target: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) Update(ctx context.Context, id domain.TargetID, u domain.TargetUpdate) error {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if u.Status != nil {
		set("status", string(*u.Status))
	}
	if u.LatencyMS != nil {
		set("latency_ms", *u.LatencyMS)
	}
	if u.LastCheck != nil {
		set("last_check", *u.LastCheck)
	}
	if u.AvgLatencyMS != nil {
		set("avg_latency_ms", *u.AvgLatencyMS)
	}
	if u.StddevLatencyMS != nil {
		set("stddev_latency_ms", *u.StddevLatencyMS)
	}
	if u.LastError != nil {
		if *u.LastError == "" {
			set("last_error", nil)
		} else {
			set("last_error", *u.LastError)
		}
	}
	if u.LastStatusCode != nil {
		set("last_status_code", *u.LastStatusCode)
	}
	if u.TLSSet {
		if u.TLS == nil {
			set("tls_info", nil)
		} else {
			set("tls_info", encodeBlob(u.TLS))
		}
	}
	if u.DomainSet {
		if u.Domain == nil {
			set("domain_info", nil)
		} else {
			set("domain_info", encodeBlob(u.Domain))
		}
	}
	if u.DNSSet {
		if u.DNS == nil {
			set("dns_info", nil)
		} else {
			set("dns_info", encodeBlob(u.DNS))
		}
	}
	if u.IPSet {
		if u.IP == nil {
			set("ip_info", nil)
		} else {
			set("ip_info", encodeBlob(u.IP))
		}
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, string(id))
	res, err := s.db.ExecContext(ctx, `UPDATE targets SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update target: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id domain.TargetID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) Append(ctx context.Context, r *domain.HistoryRecord) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	var latency any
	if r.LatencyMS != nil {
		latency = *r.LatencyMS
	}
	var code any
	if r.StatusCode != nil {
		code = *r.StatusCode
	}
	var errText any
	if r.Error != "" {
		errText = r.Error
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO history (target_id, status, latency_ms, status_code, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(r.TargetID), string(r.Status), latency, code, errText, r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) Since(ctx context.Context, id domain.TargetID, since time.Time) ([]domain.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target_id, status, latency_ms, status_code, error, timestamp
		FROM history WHERE target_id = ? AND timestamp >= ?
		ORDER BY timestamp`,
		string(id), since,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryRecord
	for rows.Next() {
		var (
			r       domain.HistoryRecord
			tid     string
			status  string
			latency sql.NullFloat64
			code    sql.NullInt64
			errText sql.NullString
		)
		if err := rows.Scan(&r.ID, &tid, &status, &latency, &code, &errText, &r.Timestamp); err != nil {
			return nil, err
		}
		r.TargetID = domain.TargetID(tid)
		r.Status = domain.Status(status)
		if latency.Valid {
			r.LatencyMS = &latency.Float64
		}
		if code.Valid {
			v := int(code.Int64)
			r.StatusCode = &v
		}
		if errText.Valid {
			r.Error = errText.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteByTarget(ctx context.Context, id domain.TargetID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE target_id = ?`, string(id))
	return err
}
