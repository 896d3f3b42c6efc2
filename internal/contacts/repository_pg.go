package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"outreach-crm/internal/apperr"
)

// NOTE: PostgresRepo assumes the CRUD layer owns these tables:
//
//	contacts (id, first_name, last_name, company_id, phone, mobile, stage,
//	          dialer_status, dialer_paused_until DATE, dialer_pause_reason, dialer_paused_at,
//	          cadence_days INT, next_call_date DATE, total_calls INT, is_aaa BOOL,
//	          city, state, country, created_at, updated_at)
//	companies (id, name, timezone, dialer_paused_until DATE, dialer_pause_reason, dialer_paused_at)
//
// Each Patch group is written in a single UPDATE; total_calls uses GREATEST so
// a stale writer can never lower it.
type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

const contactColumns = `id, first_name, last_name, COALESCE(company_id, ''), COALESCE(phone, ''), COALESCE(mobile, ''),
stage, COALESCE(dialer_status, 'active'), dialer_paused_until, COALESCE(dialer_pause_reason, ''), dialer_paused_at,
cadence_days, next_call_date, total_calls, is_aaa, COALESCE(city, ''), COALESCE(state, ''), COALESCE(country, ''), updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (Contact, error) {
	var (
		c           Contact
		pausedUntil sql.NullTime
		pausedAt    sql.NullTime
		cadence     sql.NullInt64
		nextCall    sql.NullTime
	)
	if err := row.Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.CompanyID,
		&c.Phone,
		&c.Mobile,
		&c.Stage,
		&c.DialerStatus,
		&pausedUntil,
		&c.DialerPauseReason,
		&pausedAt,
		&cadence,
		&nextCall,
		&c.TotalCalls,
		&c.IsAAA,
		&c.City,
		&c.State,
		&c.Country,
		&c.UpdatedAt,
	); err != nil {
		return Contact{}, err
	}
	c.DialerPausedUntil = nullTime(pausedUntil)
	c.DialerPausedAt = nullTime(pausedAt)
	c.NextCallDate = nullTime(nextCall)
	if cadence.Valid {
		n := int(cadence.Int64)
		c.CadenceDays = &n
	}
	return c, nil
}

func (r *PostgresRepo) List(ctx context.Context, f ListFilter) ([]Contact, error) {
	var (
		where []string
		args  []any
	)
	if len(f.Stages) > 0 {
		stages := make([]string, len(f.Stages))
		for i, s := range f.Stages {
			stages[i] = string(s)
		}
		args = append(args, stages)
		where = append(where, fmt.Sprintf("stage = ANY($%d)", len(args)))
	}
	if f.CompanyID != "" {
		args = append(args, f.CompanyID)
		where = append(where, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if f.RequirePhone {
		where = append(where, "(COALESCE(phone, '') <> '' OR COALESCE(mobile, '') <> '')")
	}

	q := "SELECT " + contactColumns + " FROM contacts"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	// Insertion order keeps equally ranked contacts stable across queue rebuilds.
	q += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Contact, error) {
	q := "SELECT " + contactColumns + " FROM contacts WHERE id = $1"
	c, err := scanContact(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contact{}, apperr.NotFound("contact", id)
		}
		return Contact{}, err
	}
	return c, nil
}

func (r *PostgresRepo) Patch(ctx context.Context, id string, p Patch) (Contact, error) {
	if p.IsEmpty() {
		return r.Get(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.TotalCalls != nil {
		sets = append(sets, "total_calls = GREATEST(total_calls, "+arg(*p.TotalCalls)+")")
	}
	if p.Schedule != nil {
		sets = append(sets,
			"next_call_date = "+arg(timeArg(p.Schedule.NextCallDate)),
			"cadence_days = "+arg(intArg(p.Schedule.CadenceDays)),
		)
	}
	if p.Status != nil {
		sets = append(sets,
			"dialer_status = "+arg(string(p.Status.Status)),
			"dialer_paused_until = "+arg(timeArg(p.Status.PausedUntil)),
			"dialer_pause_reason = "+arg(stringArg(p.Status.PauseReason)),
			"dialer_paused_at = "+arg(timeArg(p.Status.PausedAt)),
		)
	}
	if p.ClearPhone {
		sets = append(sets, "phone = NULL")
	}
	if p.ClearMobile {
		sets = append(sets, "mobile = NULL")
	}
	sets = append(sets, "updated_at = "+arg(r.clock().UTC()))

	q := "UPDATE contacts SET " + strings.Join(sets, ", ") + " WHERE id = " + arg(id) + " RETURNING " + contactColumns
	c, err := scanContact(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Contact{}, apperr.NotFound("contact", id)
		}
		return Contact{}, err
	}
	return c, nil
}

const companyColumns = `id, name, COALESCE(timezone, ''), dialer_paused_until, COALESCE(dialer_pause_reason, ''), dialer_paused_at`

func scanCompany(row rowScanner) (Company, error) {
	var (
		c           Company
		pausedUntil sql.NullTime
		pausedAt    sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Timezone, &pausedUntil, &c.DialerPauseReason, &pausedAt); err != nil {
		return Company{}, err
	}
	c.DialerPausedUntil = nullTime(pausedUntil)
	c.DialerPausedAt = nullTime(pausedAt)
	return c, nil
}

func (r *PostgresRepo) GetCompany(ctx context.Context, id string) (Company, error) {
	q := "SELECT " + companyColumns + " FROM companies WHERE id = $1"
	c, err := scanCompany(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Company{}, apperr.NotFound("company", id)
		}
		return Company{}, err
	}
	return c, nil
}

func (r *PostgresRepo) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+companyColumns+" FROM companies")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Company, 0)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) SetCompanyPause(ctx context.Context, id string, p CompanyPause) (Company, error) {
	const q = `
UPDATE companies
SET dialer_paused_until = $1, dialer_pause_reason = $2, dialer_paused_at = $3
WHERE id = $4
RETURNING ` + companyColumns

	reason := stringArg(p.Reason)
	pausedAt := timeArg(p.PausedAt)
	if p.PausedUntil == nil {
		reason, pausedAt = nil, nil
	}
	c, err := scanCompany(r.db.QueryRowContext(ctx, q, timeArg(p.PausedUntil), reason, pausedAt, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Company{}, apperr.NotFound("company", id)
		}
		return Company{}, err
	}
	return c, nil
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func intArg(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func stringArg(s string) any {
	if s == "" {
		return nil
	}
	return s
}
