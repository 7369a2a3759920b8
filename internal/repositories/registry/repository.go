package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const identityColumns = "id, canonical_email, canonical_name, phone_numbers, social_handles, alternative_emails, confidence_score, verification_status, created_at, updated_at"

// Repository is the Postgres-backed identity registry. A unique index on
// canonical_email backs the duplicate-email invariant, so two concurrent
// creates for the same normalized email cannot both land.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a Postgres identity registry
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// identityRow maps the identities table; arrays and JSONB need pq/json shims
type identityRow struct {
	ID                 string         `db:"id"`
	CanonicalEmail     string         `db:"canonical_email"`
	CanonicalName      string         `db:"canonical_name"`
	PhoneNumbers       pq.StringArray `db:"phone_numbers"`
	SocialHandles      []byte         `db:"social_handles"`
	AlternativeEmails  pq.StringArray `db:"alternative_emails"`
	ConfidenceScore    float64        `db:"confidence_score"`
	VerificationStatus string         `db:"verification_status"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (r identityRow) toModel() (*models.Identity, error) {
	handles := map[string]string{}
	if len(r.SocialHandles) > 0 {
		if err := json.Unmarshal(r.SocialHandles, &handles); err != nil {
			return nil, fmt.Errorf("failed to parse social handles: %w", err)
		}
	}
	return &models.Identity{
		ID:                 r.ID,
		CanonicalEmail:     r.CanonicalEmail,
		CanonicalName:      r.CanonicalName,
		PhoneNumbers:       append([]string{}, r.PhoneNumbers...),
		SocialHandles:      handles,
		AlternativeEmails:  append([]string{}, r.AlternativeEmails...),
		ConfidenceScore:    r.ConfidenceScore,
		VerificationStatus: models.VerificationStatus(r.VerificationStatus),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}, nil
}

// Create registers a new verified identity
func (r *Repository) Create(ctx context.Context, req models.CreateIdentityRequest) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Repository.Create")
	defer span.End()

	if strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%w: email is required", identity.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", identity.ErrInvalidInput)
	}

	phones := pq.StringArray{}
	if strings.TrimSpace(req.Phone) != "" {
		phones = append(phones, normalizers.NormalizePhone(req.Phone))
	}
	handles := req.SocialHandles
	if handles == nil {
		handles = map[string]string{}
	}
	handlesJSON, err := json.Marshal(handles)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal social handles: %w", err)
	}

	id := uuid.NewString()
	canonicalEmail := normalizers.NormalizeEmail(req.Email)

	query := fmt.Sprintf(`
		INSERT INTO identities (id, canonical_email, canonical_name, phone_numbers, social_handles, alternative_emails, confidence_score, verification_status)
		VALUES ($1, $2, $3, $4, $5, '{}', 1.0, $6)
		RETURNING %s
	`, identityColumns)

	var row identityRow
	err = r.db.GetContext(ctx, &row, query, id, canonicalEmail, strings.TrimSpace(req.Name), phones, handlesJSON, string(models.VerificationStatusVerified))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("%w: %s", identity.ErrDuplicateCanonicalEmail, canonicalEmail)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"canonical_email": canonicalEmail}).Error("Failed to create identity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create identity")
	}

	return row.toModel()
}

// Get returns the identity with the given id
func (r *Repository) Get(ctx context.Context, id string) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(identityColumns)
	sb.From("identities")
	sb.Where(sb.Equal("id", id))
	sb.Limit(1)

	query, args := sb.Build()
	var row identityRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", identity.ErrIdentityNotFound, id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"identity_id": id}).Error("Failed to get identity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get identity")
	}

	return row.toModel()
}

// Snapshot returns every identity ordered by id
func (r *Repository) Snapshot(ctx context.Context) ([]models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Repository.Snapshot")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(identityColumns)
	sb.From("identities")
	sb.OrderBy("id")

	query, args := sb.Build()
	var rows []identityRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to snapshot identities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list identities")
	}

	snapshot := make([]models.Identity, 0, len(rows))
	for _, row := range rows {
		ident, err := row.toModel()
		if err != nil {
			return nil, err
		}
		snapshot = append(snapshot, *ident)
	}
	return snapshot, nil
}

// Merge folds the secondary identity into the primary inside one
// transaction; both rows are locked so a concurrent merge cannot observe
// partial state
func (r *Repository) Merge(ctx context.Context, primaryID, secondaryID string) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Repository.Merge")
	defer span.End()

	if primaryID == secondaryID {
		return nil, fmt.Errorf("%w: cannot merge an identity with itself", identity.ErrInvalidInput)
	}

	ctxTx, tx, err := r.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctxTx)

	// Both rows lock in id order regardless of merge direction, so two
	// opposite merges of the same pair cannot deadlock each other
	lockQuery := fmt.Sprintf("SELECT %s FROM identities WHERE id IN ($1, $2) ORDER BY id FOR UPDATE", identityColumns)

	var locked []identityRow
	if err := tx.SelectContext(ctxTx, &locked, lockQuery, primaryID, secondaryID); err != nil {
		r.logger.WithContext(ctxTx).WithError(err).Error("Failed to lock identities for merge")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge identities")
	}

	var primaryRow, secondaryRow *identityRow
	for i := range locked {
		switch locked[i].ID {
		case primaryID:
			primaryRow = &locked[i]
		case secondaryID:
			secondaryRow = &locked[i]
		}
	}
	if primaryRow == nil {
		return nil, fmt.Errorf("%w: %s", identity.ErrIdentityNotFound, primaryID)
	}
	if secondaryRow == nil {
		return nil, fmt.Errorf("%w: %s", identity.ErrIdentityNotFound, secondaryID)
	}

	primary, err := primaryRow.toModel()
	if err != nil {
		return nil, err
	}
	secondary, err := secondaryRow.toModel()
	if err != nil {
		return nil, err
	}

	mergeInto(primary, secondary)
	primary.UpdatedAt = time.Now().UTC()

	handlesJSON, err := json.Marshal(primary.SocialHandles)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal social handles: %w", err)
	}

	_, err = tx.ExecContext(ctxTx, `
		UPDATE identities
		SET phone_numbers = $1, social_handles = $2, alternative_emails = $3, updated_at = $4
		WHERE id = $5
	`, pq.StringArray(primary.PhoneNumbers), handlesJSON, pq.StringArray(primary.AlternativeEmails), primary.UpdatedAt, primaryID)
	if err != nil {
		r.logger.WithContext(ctxTx).WithError(err).WithFields(map[string]any{"primary_id": primaryID}).Error("Failed to update primary identity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge identities")
	}

	if _, err := tx.ExecContext(ctxTx, "DELETE FROM identities WHERE id = $1", secondaryID); err != nil {
		r.logger.WithContext(ctxTx).WithError(err).WithFields(map[string]any{"secondary_id": secondaryID}).Error("Failed to delete secondary identity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge identities")
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"primary_id":   primaryID,
		"secondary_id": secondaryID,
	}).Info("Merged identities")

	return primary, nil
}

// Report aggregates registry statistics in one query
func (r *Repository) Report(ctx context.Context) (*models.UnificationReport, error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Repository.Report")
	defer span.End()

	var row struct {
		Total         int     `db:"total"`
		Verified      int     `db:"verified"`
		NeedsReview   int     `db:"needs_review"`
		AutoMatched   int     `db:"auto_matched"`
		AvgConfidence float64 `db:"avg_confidence"`
	}

	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE verification_status = 'verified') AS verified,
			COUNT(*) FILTER (WHERE verification_status = 'needs_review') AS needs_review,
			COUNT(*) FILTER (WHERE verification_status = 'auto_matched') AS auto_matched,
			COALESCE(AVG(confidence_score), 0) AS avg_confidence
		FROM identities
	`

	if err := r.db.GetContext(ctx, &row, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to build unification report")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to build report")
	}

	return &models.UnificationReport{
		TotalIdentities: row.Total,
		Verified:        row.Verified,
		NeedsReview:     row.NeedsReview,
		AutoMatched:     row.AutoMatched,
		AvgConfidence:   row.AvgConfidence,
	}, nil
}
