package contacts

import (
	"context"
	"time"
)

// ListFilter narrows contact reads. Zero value reads every contact.
type ListFilter struct {
	Stages       []Stage
	CompanyID    string
	RequirePhone bool
}

// Repository is the contact read/patch contract the dialer consumes from the CRUD layer.
type Repository interface {
	List(ctx context.Context, f ListFilter) ([]Contact, error)
	Get(ctx context.Context, id string) (Contact, error)
	// Patch applies p and returns the stored row. Missing ids yield apperr.NotFoundError.
	Patch(ctx context.Context, id string, p Patch) (Contact, error)
}

// CompanyRepository exposes company pause state and timezone.
type CompanyRepository interface {
	GetCompany(ctx context.Context, id string) (Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)
	SetCompanyPause(ctx context.Context, id string, p CompanyPause) (Company, error)
}

// PausedCompanyIDs returns the ids of companies with an unexpired pause.
func PausedCompanyIDs(companies []Company, today time.Time) map[string]struct{} {
	out := make(map[string]struct{})
	for _, c := range companies {
		if c.IsPaused(today) {
			out[c.ID] = struct{}{}
		}
	}
	return out
}

// CompanyTimezones indexes company timezones by id, skipping blanks.
func CompanyTimezones(companies []Company) map[string]string {
	out := make(map[string]string, len(companies))
	for _, c := range companies {
		if c.Timezone != "" {
			out[c.ID] = c.Timezone
		}
	}
	return out
}

func matches(c Contact, f ListFilter) bool {
	if f.CompanyID != "" && c.CompanyID != f.CompanyID {
		return false
	}
	if f.RequirePhone && !c.HasNumber() {
		return false
	}
	if len(f.Stages) > 0 {
		for _, s := range f.Stages {
			if c.Stage == s {
				return true
			}
		}
		return false
	}
	return true
}
