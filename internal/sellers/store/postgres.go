package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
	"github.com/supplyline/go-sellers-cache/pkg/sellersjson"
)

const schema = `
CREATE TABLE IF NOT EXISTS sellers_cache (
    domain        TEXT PRIMARY KEY,
    status        TEXT NOT NULL,
    content       JSONB,
    status_code   INTEGER,
    error_message TEXT,
    updated_at    TIMESTAMPTZ NOT NULL
)`

// PostgresStore is the system-of-record backend. Documents are stored as
// JSONB, which also enables the indexed membership fast path.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the cache table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure sellers_cache schema: %w", err)
	}
	return nil
}

type recordRow struct {
	Domain       string         `db:"domain"`
	Status       string         `db:"status"`
	Content      []byte         `db:"content"`
	StatusCode   sql.NullInt32  `db:"status_code"`
	ErrorMessage sql.NullString `db:"error_message"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r *recordRow) toRecord() *domain.CacheRecord {
	rec := &domain.CacheRecord{
		Domain:       r.Domain,
		Status:       domain.Status(r.Status),
		Content:      r.Content,
		ErrorMessage: r.ErrorMessage.String,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.StatusCode.Valid {
		code := int(r.StatusCode.Int32)
		rec.StatusCode = &code
	}
	return rec
}

func (s *PostgresStore) Get(ctx context.Context, dom string) (*domain.CacheRecord, error) {
	var row recordRow
	query := `
        SELECT domain, status, content, status_code, error_message, updated_at
        FROM sellers_cache
        WHERE domain = $1`

	err := s.db.GetContext(ctx, &row, query, dom)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache record: %w", err)
	}

	return row.toRecord(), nil
}

func (s *PostgresStore) Put(ctx context.Context, record *domain.CacheRecord) error {
	query := `
        INSERT INTO sellers_cache (domain, status, content, status_code, error_message, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (domain) DO UPDATE SET
            status        = EXCLUDED.status,
            content       = EXCLUDED.content,
            status_code   = EXCLUDED.status_code,
            error_message = EXCLUDED.error_message,
            updated_at    = EXCLUDED.updated_at`

	// JSONB wants its parameter as text, not bytea.
	var content interface{}
	if len(record.Content) > 0 {
		content = string(record.Content)
	}
	var statusCode interface{}
	if record.StatusCode != nil {
		statusCode = *record.StatusCode
	}
	var errorMessage interface{}
	if record.ErrorMessage != "" {
		errorMessage = record.ErrorMessage
	}

	_, err := s.db.ExecContext(ctx, query,
		record.Domain,
		string(record.Status),
		content,
		statusCode,
		errorMessage,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put cache record: %w", err)
	}

	return nil
}

// QueryMembership tests seller IDs against the stored document server-side
// so a 100-ID probe never transfers a multi-hundred-megabyte body. Only a
// successful record written after freshAfter qualifies; anything else
// returns nil, nil and the caller takes the full path.
func (s *PostgresStore) QueryMembership(ctx context.Context, dom string, sellerIDs []string, freshAfter time.Time) (*MembershipResult, error) {
	metaQuery := `
        SELECT updated_at,
               COALESCE(content->>'contact_email', '')   AS contact_email,
               COALESCE(content->>'contact_address', '') AS contact_address,
               COALESCE(content->>'version', '')         AS version,
               content->'identifiers'                    AS identifiers,
               jsonb_array_length(COALESCE(content->'sellers', '[]'::jsonb)) AS seller_count
        FROM sellers_cache
        WHERE domain = $1
          AND status = $2
          AND updated_at > $3`

	var meta struct {
		UpdatedAt      time.Time `db:"updated_at"`
		ContactEmail   string    `db:"contact_email"`
		ContactAddress string    `db:"contact_address"`
		Version        string    `db:"version"`
		Identifiers    []byte    `db:"identifiers"`
		SellerCount    int       `db:"seller_count"`
	}
	err := s.db.GetContext(ctx, &meta, metaQuery, dom, string(domain.StatusSuccess), freshAfter)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query document metadata: %w", err)
	}

	result := &MembershipResult{
		Found:     make(map[string]*sellersjson.Seller, len(sellerIDs)),
		UpdatedAt: meta.UpdatedAt,
		Metadata: &sellersjson.Metadata{
			ContactEmail:   meta.ContactEmail,
			ContactAddress: meta.ContactAddress,
			Version:        meta.Version,
			SellerCount:    meta.SellerCount,
		},
	}
	if len(meta.Identifiers) > 0 {
		if err := json.Unmarshal(meta.Identifiers, &result.Metadata.Identifiers); err != nil {
			return nil, fmt.Errorf("failed to decode document identifiers: %w", err)
		}
	}

	membersQuery := `
        SELECT s.elem
        FROM sellers_cache c
        CROSS JOIN LATERAL jsonb_array_elements(COALESCE(c.content->'sellers', '[]'::jsonb)) AS s(elem)
        WHERE c.domain = $1
          AND c.status = $2
          AND c.updated_at > $3
          AND s.elem->>'seller_id' = ANY($4)`

	rows, err := s.db.QueryContext(ctx, membersQuery, dom, string(domain.StatusSuccess), freshAfter, pq.Array(sellerIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query seller membership: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var elem []byte
		if err := rows.Scan(&elem); err != nil {
			return nil, fmt.Errorf("failed to scan seller entry: %w", err)
		}
		var seller sellersjson.Seller
		if err := json.Unmarshal(elem, &seller); err != nil {
			return nil, fmt.Errorf("failed to decode seller entry: %w", err)
		}
		// First occurrence wins on duplicate IDs, matching the scan path.
		if _, exists := result.Found[seller.SellerID]; !exists {
			s := seller
			result.Found[seller.SellerID] = &s
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seller membership rows: %w", err)
	}

	return result, nil
}
