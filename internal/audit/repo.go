package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopd/shopd/internal/apperr"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.IPAddress == "" {
		e.IPAddress = "unknown"
	}
	if e.UserAgent == "" {
		e.UserAgent = "unknown"
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO audit_logs(id, user_id, user_email, user_name, action, success, details, ip_address, user_agent, created_at)
		VALUES ($1, NULLIF($2,'')::uuid, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.UserID, e.UserEmail, e.UserName, e.Action, e.Success, e.Details, e.IPAddress, e.UserAgent, e.CreatedAt,
	)
	if err != nil {
		return apperr.Internal(err, "insert audit entry")
	}
	return nil
}

func (r *Repo) List(ctx context.Context, f Filter, page, limit int) ([]Entry, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	where := ""
	args := []any{}
	add := func(cond string, arg any) {
		args = append(args, arg)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(cond, len(args))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.EmailContains != "" {
		add("user_email ILIKE '%%' || $%d || '%%'", f.EmailContains)
	}
	if f.Success != nil {
		add("success = $%d", *f.Success)
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <= $%d", f.To)
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(err, "count audit entries")
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT id, COALESCE(user_id::text,''), user_email, user_name, action, success, details, ip_address, user_agent, created_at
		FROM audit_logs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Internal(err, "query audit entries")
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserEmail, &e.UserName, &e.Action, &e.Success, &e.Details, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, 0, apperr.Internal(err, "scan audit entry")
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *Repo) ListForUser(ctx context.Context, userID string, page, limit int) ([]Entry, int, error) {
	return r.List(ctx, Filter{UserID: userID}, page, limit)
}

func (r *Repo) GetStats(ctx context.Context) (Stats, error) {
	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.AddDate(0, 0, -7)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var s Stats
	err := r.DB.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE success),
			COUNT(*) FILTER (WHERE NOT success),
			COUNT(*) FILTER (WHERE success AND created_at >= $1),
			COUNT(*) FILTER (WHERE success AND created_at >= $2),
			COUNT(*) FILTER (WHERE success AND created_at >= $3),
			COUNT(DISTINCT user_id) FILTER (WHERE success AND created_at >= $2)
		FROM audit_logs WHERE action = $4`,
		startOfDay, weekAgo, startOfMonth, ActionLogin,
	).Scan(&s.TotalLogins, &s.FailedLogins, &s.LoginsToday, &s.LoginsWeek, &s.LoginsMonth, &s.ActiveUsers)
	if err != nil {
		return Stats{}, apperr.Internal(err, "query audit stats")
	}
	return s, nil
}
