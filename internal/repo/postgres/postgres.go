package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"sitewatch/internal/domain"
	"sitewatch/internal/repo"
)

var _ repo.TargetStore = (*Store)(nil)
var _ repo.HistoryStore = (*Store)(nil)

// Store is the server-grade record store, used when DATABASE_URL points at
// a postgres instance.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	s := &Store{pool: pool, log: log}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS targets (
	id                TEXT PRIMARY KEY,
	kind              TEXT NOT NULL CHECK (kind IN ('url','ip')),
	address           TEXT NOT NULL,
	name              TEXT NOT NULL,
	category          TEXT NOT NULL DEFAULT 'website',
	anomaly_threshold INTEGER NOT NULL DEFAULT 1000,
	notifications     JSONB NOT NULL DEFAULT '{}',
	status            TEXT NOT NULL DEFAULT 'unknown',
	latency_ms        DOUBLE PRECISION,
	last_check        TIMESTAMPTZ,
	avg_latency_ms    DOUBLE PRECISION,
	stddev_latency_ms DOUBLE PRECISION,
	last_error        TEXT,
	last_status_code  INTEGER,
	tls_info          JSONB,
	domain_info       JSONB,
	dns_info          JSONB,
	ip_info           JSONB,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS history (
	id          BIGSERIAL PRIMARY KEY,
	target_id   TEXT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
	status      TEXT NOT NULL,
	latency_ms  DOUBLE PRECISION,
	status_code INTEGER,
	error       TEXT,
	timestamp   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_target_ts ON history(target_id, timestamp);
`)
	if err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

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
	_, err = s.pool.Exec(ctx, `
		INSERT INTO targets (id, kind, address, name, category, anomaly_threshold, notifications, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(t.ID), string(t.Kind), t.Address, t.Name, t.Category,
		t.AnomalyThreshold, prefs, string(t.Status), t.CreatedAt,
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
	rows, err := s.pool.Query(ctx, `SELECT `+targetColumns+` FROM targets ORDER BY created_at`)
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
	rows, err := s.pool.Query(ctx, `SELECT `+targetColumns+` FROM targets WHERE id = $1`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, repo.ErrNotFound
	}
	return scanTarget(rows)
}

func (s *Store) GetByAddress(ctx context.Context, addr string) (*domain.Target, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+targetColumns+` FROM targets WHERE address = $1`, addr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, repo.ErrNotFound
	}
	return scanTarget(rows)
}

func scanTarget(row pgx.Row) (*domain.Target, error) {
	var (
		t          domain.Target
		id, kind   string
		status     string
		prefs      []byte
		lastCheck  *time.Time
		lastErr    *string
		lastCode   *int
		tlsJSON    []byte
		domainJSON []byte
		dnsJSON    []byte
		ipJSON     []byte
	)
	err := row.Scan(&id, &kind, &t.Address, &t.Name, &t.Category, &t.AnomalyThreshold, &prefs,
		&status, &t.LatencyMS, &lastCheck, &t.AvgLatencyMS, &t.StddevLatencyMS,
		&lastErr, &lastCode, &tlsJSON, &domainJSON, &dnsJSON, &ipJSON, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.ID = domain.TargetID(id)
	t.Kind = domain.Kind(kind)
	t.Status = domain.Status(status)
	_ = json.Unmarshal(prefs, &t.Notifications)
	if lastCheck != nil {
		t.LastCheck = *lastCheck
	}
	if lastErr != nil {
		t.LastError = *lastErr
	}
	t.LastStatusCode = lastCode
	decodeBlob(tlsJSON, &t.TLS)
	decodeBlob(domainJSON, &t.Domain)
	decodeBlob(dnsJSON, &t.DNS)
	decodeBlob(ipJSON, &t.IP)
	return &t, nil
}

func decodeBlob[T any](raw []byte, dst **T) {
	if len(raw) == 0 || string(raw) == "null" {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = &v
	}
}

func (s *Store) Put(ctx context.Context, t *domain.Target) error {
	prefs, err := json.Marshal(t.Notifications)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE targets SET name = $1, category = $2, anomaly_threshold = $3, notifications = $4
		WHERE id = $5`,
		t.Name, t.Category, t.AnomalyThreshold, prefs, string(t.ID),
	)
	if err != nil {
		return fmt.Errorf("put target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) Update(ctx context.Context, id domain.TargetID, u domain.TargetUpdate) error {
	var sets []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	setJSON := func(col string, v any, isNil bool) {
		if isNil {
			set(col, nil)
			return
		}
		b, err := json.Marshal(v)
		if err != nil {
			set(col, nil)
			return
		}
		set(col, b)
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
		setJSON("tls_info", u.TLS, u.TLS == nil)
	}
	if u.DomainSet {
		setJSON("domain_info", u.Domain, u.Domain == nil)
	}
	if u.DNSSet {
		setJSON("dns_info", u.DNS, u.DNS == nil)
	}
	if u.IPSet {
		setJSON("ip_info", u.IP, u.IP == nil)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, string(id))
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE targets SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)),
		args...,
	)
	if err != nil {
		return fmt.Errorf("update target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id domain.TargetID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM targets WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) Append(ctx context.Context, r *domain.HistoryRecord) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	var errText *string
	if r.Error != "" {
		errText = &r.Error
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO history (target_id, status, latency_ms, status_code, error, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		string(r.TargetID), string(r.Status), r.LatencyMS, r.StatusCode, errText, r.Timestamp,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *Store) Since(ctx context.Context, id domain.TargetID, since time.Time) ([]domain.HistoryRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, target_id, status, latency_ms, status_code, error, timestamp
		FROM history WHERE target_id = $1 AND timestamp >= $2
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
			errText *string
		)
		if err := rows.Scan(&r.ID, &tid, &status, &r.LatencyMS, &r.StatusCode, &errText, &r.Timestamp); err != nil {
			return nil, err
		}
		r.TargetID = domain.TargetID(tid)
		r.Status = domain.Status(status)
		if errText != nil {
			r.Error = *errText
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteByTarget(ctx context.Context, id domain.TargetID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM history WHERE target_id = $1`, string(id))
	return err
}
