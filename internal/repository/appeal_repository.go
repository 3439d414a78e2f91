package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/emeraldmc/appeals-api/internal/models"
)

const appealColumns = `id, username, discord_tag, email, minecraft_uuid, ban_reason, appeal_reason,
       additional_info, status, response, handled_by, created_at, updated_at, handled_at,
       ip_address, user_agent, webhook_sent`

// AppealRepository is the sole mediator between the application and the
// ban_appeals table.
type AppealRepository struct {
	db *sqlx.DB
}

// NewAppealRepository constructs the repository.
func NewAppealRepository(db *sqlx.DB) *AppealRepository {
	return &AppealRepository{db: db}
}

// Create inserts a new appeal row. The id, status, webhook flag and
// timestamps are assigned here; caller-provided values for them are ignored.
func (r *AppealRepository) Create(ctx context.Context, appeal *models.Appeal) error {
	appeal.ID = uuid.NewString()
	appeal.Status = models.AppealStatusPending
	appeal.WebhookSent = false
	now := time.Now().UTC()
	appeal.CreatedAt = now
	appeal.UpdatedAt = now

	const query = `INSERT INTO ban_appeals
	(id, username, discord_tag, email, minecraft_uuid, ban_reason, appeal_reason, additional_info,
	 status, created_at, updated_at, ip_address, user_agent, webhook_sent)
	VALUES (:id, :username, :discord_tag, :email, :minecraft_uuid, :ban_reason, :appeal_reason, :additional_info,
	 :status, :created_at, :updated_at, :ip_address, :user_agent, :webhook_sent)`
	if _, err := r.db.NamedExecContext(ctx, query, appeal); err != nil {
		return fmt.Errorf("create appeal: %w", err)
	}
	return nil
}

// GetByID fetches a single appeal. Absence is not an error: a missing row
// yields (nil, nil).
func (r *AppealRepository) GetByID(ctx context.Context, id string) (*models.Appeal, error) {
	query := fmt.Sprintf(`SELECT %s FROM ban_appeals WHERE id = $1`, appealColumns)
	var appeal models.Appeal
	if err := r.db.GetContext(ctx, &appeal, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get appeal: %w", err)
	}
	return &appeal, nil
}

// List returns appeals matching the filter, newest first. An empty filter
// returns every row.
func (r *AppealRepository) List(ctx context.Context, filter models.AppealFilter) ([]models.Appeal, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	fmt.Fprintf(&builder, "SELECT %s FROM ban_appeals", appealColumns)

	conditions := make([]string, 0, 4)
	if filter.Username != "" {
		args = append(args, filter.Username)
		conditions = append(conditions, fmt.Sprintf("username = $%d", len(args)))
	}
	if filter.Email != "" {
		args = append(args, filter.Email)
		conditions = append(conditions, fmt.Sprintf("email = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Days > 0 {
		args = append(args, time.Now().UTC().AddDate(0, 0, -filter.Days))
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	appeals := []models.Appeal{}
	if err := r.db.SelectContext(ctx, &appeals, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list appeals: %w", err)
	}
	return appeals, nil
}

// UpdateAppealStatusParams groups the mutable review columns. Nil Response
// and HandledBy leave the stored values untouched.
type UpdateAppealStatusParams struct {
	ID        string
	Status    models.AppealStatus
	Response  *string
	HandledBy *string
	HandledAt time.Time
}

// UpdateStatus applies a review decision, stamping handled_at. A missing
// row surfaces as sql.ErrNoRows.
func (r *AppealRepository) UpdateStatus(ctx context.Context, params UpdateAppealStatusParams) error {
	setParts := []string{
		"status = :status",
		"handled_at = :handled_at",
		"updated_at = :updated_at",
	}
	if params.Response != nil {
		setParts = append(setParts, "response = :response")
	}
	if params.HandledBy != nil {
		setParts = append(setParts, "handled_by = :handled_by")
	}
	query := fmt.Sprintf("UPDATE ban_appeals SET %s WHERE id = :id", strings.Join(setParts, ", "))

	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":         params.ID,
		"status":     params.Status,
		"handled_at": params.HandledAt,
		"updated_at": time.Now().UTC(),
		"response":   params.Response,
		"handled_by": params.HandledBy,
	})
	if err != nil {
		return fmt.Errorf("update appeal status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update appeal status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkWebhookSent flips the webhook flag. The write is idempotent: calling
// it on an already-marked row succeeds without effect.
func (r *AppealRepository) MarkWebhookSent(ctx context.Context, id string) error {
	const query = `UPDATE ban_appeals SET webhook_sent = TRUE, updated_at = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark webhook sent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark webhook sent: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete hard-removes an appeal. There is no tombstone.
func (r *AppealRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM ban_appeals WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete appeal: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete appeal: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Stats aggregates counts by status in a single grouped query, so the four
// figures always describe one consistent snapshot.
func (r *AppealRepository) Stats(ctx context.Context) (*models.AppealStats, error) {
	const query = `SELECT status, COUNT(*) AS count FROM ban_appeals GROUP BY status`

	rows := []struct {
		Status models.AppealStatus `db:"status"`
		Count  int                 `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("appeal stats: %w", err)
	}

	stats := &models.AppealStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case models.AppealStatusPending:
			stats.Pending = row.Count
		case models.AppealStatusApproved:
			stats.Approved = row.Count
		case models.AppealStatusDenied:
			stats.Denied = row.Count
		}
	}
	return stats, nil
}
