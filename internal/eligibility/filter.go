// Package eligibility decides which contacts are callable right now and in
// what order they are served.
package eligibility

import (
	"fmt"
	"sort"
	"time"

	"outreach-crm/internal/apperr"
	"outreach-crm/internal/calendar"
	"outreach-crm/internal/contacts"
)

type Scope string

const (
	ScopeAll     Scope = "all"
	ScopeStages  Scope = "stages"
	ScopeCompany Scope = "company"
)

// Config is the operator-chosen queue filter.
type Config struct {
	Scope     Scope            `json:"scope"`
	Stages    []contacts.Stage `json:"stages,omitempty"`
	CompanyID string           `json:"company_id,omitempty"`

	RequirePhone  bool `json:"require_phone"`
	EnableCadence bool `json:"enable_cadence"`

	// Timezones restricts the queue to these groups. Empty means all.
	Timezones []TimezoneGroup `json:"timezones,omitempty"`
}

func (c Config) scope() Scope {
	if c.Scope == "" {
		return ScopeAll
	}
	return c.Scope
}

func (c Config) Validate() error {
	switch c.scope() {
	case ScopeAll:
	case ScopeStages:
		if len(c.Stages) == 0 {
			return apperr.Invalid("stages", "must not be empty")
		}
		for _, s := range c.Stages {
			if !s.Valid() {
				return apperr.Invalid("stages", fmt.Sprintf("unknown stage %q", s))
			}
		}
	case ScopeCompany:
		if c.CompanyID == "" {
			return apperr.Invalid("company_id", "required for company scope")
		}
	default:
		return apperr.Invalid("scope", fmt.Sprintf("unknown scope %q", c.Scope))
	}
	for _, tz := range c.Timezones {
		if !tz.Valid() {
			return apperr.Invalid("timezones", fmt.Sprintf("unknown timezone group %q", tz))
		}
	}
	return nil
}

// ListFilter pushes the scope and phone requirement down to the contact store.
// BuildQueue applies them again, so a store that ignores the filter is still correct.
func (c Config) ListFilter() contacts.ListFilter {
	f := contacts.ListFilter{RequirePhone: c.RequirePhone}
	switch c.scope() {
	case ScopeStages:
		f.Stages = c.Stages
	case ScopeCompany:
		f.CompanyID = c.CompanyID
	}
	return f
}

// Input is everything the filter reads. Sets may be nil.
type Input struct {
	Contacts         []contacts.Contact
	CalledToday      map[string]struct{}
	PausedCompanies  map[string]struct{}
	CompanyTimezones map[string]string
	Today            time.Time
}

type Filter struct {
	maxAttempts int
}

func NewFilter(maxAttempts int) *Filter { return &Filter{maxAttempts: maxAttempts} }

// BuildQueue returns the ordered list of contacts callable now. An empty
// result is a valid answer, not an error.
func (f *Filter) BuildQueue(in Input, cfg Config) ([]contacts.Contact, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	today := calendar.Day(in.Today)

	var stageSet map[contacts.Stage]struct{}
	if cfg.scope() == ScopeStages {
		stageSet = make(map[contacts.Stage]struct{}, len(cfg.Stages))
		for _, s := range cfg.Stages {
			stageSet[s] = struct{}{}
		}
	}
	var tzSet map[TimezoneGroup]struct{}
	if len(cfg.Timezones) > 0 {
		tzSet = make(map[TimezoneGroup]struct{}, len(cfg.Timezones))
		for _, tz := range cfg.Timezones {
			tzSet[tz] = struct{}{}
		}
	}

	out := make([]contacts.Contact, 0, len(in.Contacts))
	for _, c := range in.Contacts {
		// Same-day recall exclusion wins over every toggle.
		if _, called := in.CalledToday[c.ID]; called {
			continue
		}
		switch cfg.scope() {
		case ScopeStages:
			if _, ok := stageSet[c.Stage]; !ok {
				continue
			}
		case ScopeCompany:
			if c.CompanyID != cfg.CompanyID {
				continue
			}
		}
		if cfg.RequirePhone && !c.HasNumber() {
			continue
		}
		if tzSet != nil {
			if _, ok := tzSet[ResolveTimezone(c, in.CompanyTimezones[c.CompanyID])]; !ok {
				continue
			}
		}
		if !f.Callable(c, today, in.PausedCompanies) {
			continue
		}
		if cfg.EnableCadence && !calendar.IsDue(c.NextCallDate, today) {
			continue
		}
		out = append(out, c)
	}

	Sort(out, cfg.EnableCadence)
	return out, nil
}

// Callable is the hard gate applied regardless of cadence settings.
func (f *Filter) Callable(c contacts.Contact, today time.Time, pausedCompanies map[string]struct{}) bool {
	switch c.Status() {
	case contacts.DialerStatusExhausted, contacts.DialerStatusConverted:
		return false
	case contacts.DialerStatusPaused:
		if !calendar.IsPauseExpired(c.DialerPausedUntil, today) {
			return false
		}
	}
	if f.maxAttempts > 0 && c.TotalCalls >= f.maxAttempts {
		return false
	}
	if c.CompanyID != "" {
		if _, paused := pausedCompanies[c.CompanyID]; paused {
			return false
		}
	}
	return true
}

// Sort orders a queue in place. AAA contacts always lead. With cadence on,
// scheduled contacts come before never-scheduled ones, oldest date first.
// The sort is stable: equally ranked contacts keep their input order.
func Sort(cs []contacts.Contact, cadence bool) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.IsAAA != b.IsAAA {
			return a.IsAAA
		}
		if !cadence {
			return false
		}
		if (a.NextCallDate != nil) != (b.NextCallDate != nil) {
			return a.NextCallDate != nil
		}
		if a.NextCallDate != nil && b.NextCallDate != nil {
			return a.NextCallDate.Before(*b.NextCallDate)
		}
		return false
	})
}
