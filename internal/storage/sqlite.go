package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"apicatalog/internal/model"
	"apicatalog/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateProvider inserts a new provider and populates its ID and CreatedAt.
// Returns ErrConflict if a provider with the same name already exists.
func (s *SQLite) CreateProvider(ctx context.Context, p *model.Provider) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO providers (name, website, logo_url, contact, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Website, p.LogoURL, p.Contact, now,
	)
	if err != nil {
		return wrapConflict("insert provider", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	p.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetProviderByName returns a provider by its name, case-insensitively.
func (s *SQLite) GetProviderByName(ctx context.Context, name string) (*model.Provider, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, website, logo_url, contact, created_at
		 FROM providers WHERE name = ? COLLATE NOCASE`, name,
	)
	var p model.Provider
	var created string
	err := row.Scan(&p.ID, &p.Name, &p.Website, &p.LogoURL, &p.Contact, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan provider: %w", err)
	}
	p.CreatedAt, _ = time.Parse(timeLayout, created)
	return &p, nil
}

// UpdateProviderContact sets the contact field on an existing provider.
func (s *SQLite) UpdateProviderContact(ctx context.Context, id int64, contact string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE providers SET contact = ? WHERE id = ?`, contact, id,
	)
	if err != nil {
		return fmt.Errorf("update provider contact: %w", err)
	}
	return nil
}

const apiColumns = `id, slug, name, provider_id, category, description, docs_url,
	status, source, verified, tags, pricing_url, registration_url, changelog_url,
	logo_url, pricing_model, support_channels, free_tier_note, last_hash,
	response_time_ms, last_checked_at, created_at`

// CreateApi inserts a new catalog entry and populates its ID and CreatedAt.
// Returns ErrConflict when the slug or the (provider, name) pair collides.
func (s *SQLite) CreateApi(ctx context.Context, api *model.Api) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO apis (slug, name, provider_id, category, description, docs_url,
		   status, source, verified, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		api.Slug, api.Name, api.ProviderID, api.Category, api.Description, api.DocsURL,
		string(api.Status), string(api.Source), boolToInt(api.Verified),
		strings.Join(api.Tags, ","), now,
	)
	if err != nil {
		return wrapConflict("insert api", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	api.ID = id
	api.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetApi returns a single catalog entry by its ID.
func (s *SQLite) GetApi(ctx context.Context, id int64) (*model.Api, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+apiColumns+` FROM apis WHERE id = ?`, id,
	)
	return scanApi(row)
}

// FindApiBySlug returns the entry with the given slug, or ErrNotFound.
func (s *SQLite) FindApiBySlug(ctx context.Context, slug string) (*model.Api, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+apiColumns+` FROM apis WHERE slug = ?`, slug,
	)
	return scanApi(row)
}

// FindApiByProviderName returns the entry with the given provider and name
// (case-insensitive), or ErrNotFound.
func (s *SQLite) FindApiByProviderName(ctx context.Context, providerID int64, name string) (*model.Api, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+apiColumns+` FROM apis WHERE provider_id = ? AND name = ? COLLATE NOCASE`,
		providerID, name,
	)
	return scanApi(row)
}

// ListDueForCrawl returns up to limit entries eligible for re-crawl, stalest
// first. PENDING entries await admin review and INACTIVE entries are retired,
// so neither is selected. Never-checked entries sort before all others.
func (s *SQLite) ListDueForCrawl(ctx context.Context, limit int) ([]model.Api, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+apiColumns+` FROM apis
		 WHERE status NOT IN ('INACTIVE', 'PENDING')
		 ORDER BY last_checked_at ASC, id ASC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query due apis: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanApis(rows)
}

// ListForLinkCheck returns up to limit non-INACTIVE entries, stalest first.
// A limit of 0 or less returns all of them.
func (s *SQLite) ListForLinkCheck(ctx context.Context, limit int) ([]model.Api, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+apiColumns+` FROM apis
		 WHERE status != 'INACTIVE'
		 ORDER BY last_checked_at ASC, id ASC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query apis for link check: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanApis(rows)
}

// UpdateApi persists the mutable fields of an existing entry.
func (s *SQLite) UpdateApi(ctx context.Context, api *model.Api) error {
	var lastChecked *string
	if api.LastCheckedAt != nil {
		v := api.LastCheckedAt.UTC().Format(timeLayout)
		lastChecked = &v
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE apis SET category = ?, description = ?, docs_url = ?, status = ?,
		   verified = ?, tags = ?, pricing_url = ?, registration_url = ?,
		   changelog_url = ?, logo_url = ?, pricing_model = ?, support_channels = ?,
		   free_tier_note = ?, last_hash = ?, response_time_ms = ?, last_checked_at = ?
		 WHERE id = ?`,
		api.Category, api.Description, api.DocsURL, string(api.Status),
		boolToInt(api.Verified), strings.Join(api.Tags, ","), api.PricingURL,
		api.RegistrationURL, api.ChangelogURL, api.LogoURL, api.PricingModel,
		api.SupportChannels, api.FreeTierNote, api.LastHash, api.ResponseTimeMS,
		lastChecked, api.ID,
	)
	if err != nil {
		return fmt.Errorf("update api: %w", err)
	}
	return nil
}

// UpdateApiStatus sets an entry's status and stamps last_checked_at now.
func (s *SQLite) UpdateApiStatus(ctx context.Context, id int64, status model.ApiStatus, responseTimeMS int) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`UPDATE apis SET status = ?, response_time_ms = ?, last_checked_at = ? WHERE id = ?`,
		string(status), responseTimeMS, now, id,
	)
	if err != nil {
		return fmt.Errorf("update api status: %w", err)
	}
	return nil
}

// ListEnabledSources returns all enabled discovery sources.
func (s *SQLite) ListEnabledSources(ctx context.Context) ([]model.DiscoverySource, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, url, kind, enabled, last_checked_at, created_at
		 FROM discovery_sources WHERE enabled = 1 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []model.DiscoverySource
	for rows.Next() {
		var src model.DiscoverySource
		var kind string
		var enabled int
		var lastChecked, created sql.NullString
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &kind, &enabled, &lastChecked, &created); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.Kind = model.SourceKind(kind)
		src.Enabled = enabled == 1
		if lastChecked.Valid {
			t, _ := time.Parse(timeLayout, lastChecked.String)
			src.LastCheckedAt = &t
		}
		if created.Valid {
			src.CreatedAt, _ = time.Parse(timeLayout, created.String)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// SeedSources inserts the given sources, ignoring any whose URL already exists.
func (s *SQLite) SeedSources(ctx context.Context, sources []model.DiscoverySource) error {
	now := time.Now().UTC().Format(timeLayout)
	for _, src := range sources {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO discovery_sources (name, url, kind, enabled, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			src.Name, src.URL, string(src.Kind), boolToInt(src.Enabled), now,
		)
		if err != nil {
			return fmt.Errorf("seed source %q: %w", src.Name, err)
		}
	}
	return nil
}

// UpdateSourceChecked stamps a source's last_checked_at with the current time.
func (s *SQLite) UpdateSourceChecked(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`UPDATE discovery_sources SET last_checked_at = ? WHERE id = ?`, now, id,
	)
	if err != nil {
		return fmt.Errorf("update source checked: %w", err)
	}
	return nil
}

// HasDiscoveryLog reports whether an item with this title was already
// processed for the source in a previous run.
func (s *SQLite) HasDiscoveryLog(ctx context.Context, sourceID int64, title string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM discovery_logs WHERE source_id = ? AND title = ?`,
		sourceID, title,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check discovery log: %w", err)
	}
	return count > 0, nil
}

// AppendDiscoveryLog records the outcome of one processed item.
func (s *SQLite) AppendDiscoveryLog(ctx context.Context, entry *model.DiscoveryLog) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO discovery_logs (source_id, title, url, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.SourceID, entry.Title, entry.URL, string(entry.Status), now,
	)
	if err != nil {
		return wrapConflict("insert discovery log", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	entry.ID = id
	entry.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// AppendPricingHistory records an observed content-hash change.
func (s *SQLite) AppendPricingHistory(ctx context.Context, h *model.PricingHistory) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pricing_history (api_id, previous_hash, new_hash, url, captured_at)
		 VALUES (?, ?, ?, ?, ?)`,
		h.ApiID, h.PreviousHash, h.NewHash, h.URL, now,
	)
	if err != nil {
		return fmt.Errorf("insert pricing history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	h.ID = id
	h.CapturedAt, _ = time.Parse(timeLayout, now)
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func wrapConflict(op string, err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanApi(row scannable) (*model.Api, error) {
	var api model.Api
	var status, source, tags string
	var verified int
	var lastChecked, created sql.NullString
	err := row.Scan(
		&api.ID, &api.Slug, &api.Name, &api.ProviderID, &api.Category,
		&api.Description, &api.DocsURL, &status, &source, &verified, &tags,
		&api.PricingURL, &api.RegistrationURL, &api.ChangelogURL, &api.LogoURL,
		&api.PricingModel, &api.SupportChannels, &api.FreeTierNote, &api.LastHash,
		&api.ResponseTimeMS, &lastChecked, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan api: %w", err)
	}
	api.Status = model.ApiStatus(status)
	api.Source = model.ApiSource(source)
	api.Verified = verified == 1
	if tags != "" {
		api.Tags = strings.Split(tags, ",")
	}
	if lastChecked.Valid {
		t, _ := time.Parse(timeLayout, lastChecked.String)
		api.LastCheckedAt = &t
	}
	if created.Valid {
		api.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &api, nil
}

func scanApis(rows *sql.Rows) ([]model.Api, error) {
	var apis []model.Api
	for rows.Next() {
		api, err := scanApi(rows)
		if err != nil {
			return nil, err
		}
		apis = append(apis, *api)
	}
	return apis, rows.Err()
}
