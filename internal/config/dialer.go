package config

import (
	"fmt"
	"time"

	"outreach-crm/internal/cadence"
	"outreach-crm/internal/capacity"
	"outreach-crm/internal/session"

	"github.com/robfig/cron/v3"
)

// DialerConfig is the engine's tuning surface. Every value is optional.
type DialerConfig struct {
	MaxCallAttempts        int
	DefaultCadenceDays     int
	InterestedCadenceDays  int
	NotInterestedPauseDays int
	HangUpCooldownDays     int
	DailyTarget            int
	SessionGapMinutes      int
	StaleCallMinutes       int
	UnreachableAttempts    int
	CallLockTTL            time.Duration

	CapacityCron    string
	CapacityAutoFix bool
}

func DefaultDialer() DialerConfig {
	p := cadence.DefaultPolicy()
	return DialerConfig{
		MaxCallAttempts:        p.MaxCallAttempts,
		DefaultCadenceDays:     p.DefaultCadenceDays,
		InterestedCadenceDays:  p.InterestedCadenceDays,
		NotInterestedPauseDays: p.NotInterestedPauseDays,
		HangUpCooldownDays:     p.HangUpCooldownDays,
		DailyTarget:            600,
		SessionGapMinutes:      30,
		StaleCallMinutes:       15,
		UnreachableAttempts:    6,
		CallLockTTL:            2 * time.Hour,
		CapacityCron:           "*/30 * * * *",
	}
}

func loadDialer() (DialerConfig, []error) {
	d := DefaultDialer()
	var errs []error

	ints := []struct {
		key string
		dst *int
	}{
		{"DIALER_MAX_CALL_ATTEMPTS", &d.MaxCallAttempts},
		{"DIALER_DEFAULT_CADENCE_DAYS", &d.DefaultCadenceDays},
		{"DIALER_INTERESTED_CADENCE_DAYS", &d.InterestedCadenceDays},
		{"DIALER_NOT_INTERESTED_PAUSE_DAYS", &d.NotInterestedPauseDays},
		{"DIALER_HANG_UP_COOLDOWN_DAYS", &d.HangUpCooldownDays},
		{"DIALER_DAILY_TARGET", &d.DailyTarget},
		{"DIALER_SESSION_GAP_MINUTES", &d.SessionGapMinutes},
		{"DIALER_STALE_CALL_MINUTES", &d.StaleCallMinutes},
		{"DIALER_UNREACHABLE_ATTEMPTS", &d.UnreachableAttempts},
	}
	for _, f := range ints {
		n, err := optionalInt(f.key, *f.dst)
		if err != nil {
			errs = append(errs, err)
		}
		*f.dst = n
	}

	ttl, err := optionalDuration("DIALER_CALL_LOCK_TTL", d.CallLockTTL)
	if err != nil {
		errs = append(errs, err)
	}
	d.CallLockTTL = ttl

	if v := envTrim("CAPACITY_CRON"); v != "" {
		d.CapacityCron = v
	}
	auto, err := optionalBool("CAPACITY_AUTOFIX", false)
	if err != nil {
		errs = append(errs, err)
	}
	d.CapacityAutoFix = auto

	return d, errs
}

func (d DialerConfig) validate() []error {
	var errs []error
	positive := []struct {
		key string
		v   int
	}{
		{"DIALER_MAX_CALL_ATTEMPTS", d.MaxCallAttempts},
		{"DIALER_DEFAULT_CADENCE_DAYS", d.DefaultCadenceDays},
		{"DIALER_INTERESTED_CADENCE_DAYS", d.InterestedCadenceDays},
		{"DIALER_NOT_INTERESTED_PAUSE_DAYS", d.NotInterestedPauseDays},
		{"DIALER_HANG_UP_COOLDOWN_DAYS", d.HangUpCooldownDays},
		{"DIALER_DAILY_TARGET", d.DailyTarget},
		{"DIALER_SESSION_GAP_MINUTES", d.SessionGapMinutes},
		{"DIALER_STALE_CALL_MINUTES", d.StaleCallMinutes},
		{"DIALER_UNREACHABLE_ATTEMPTS", d.UnreachableAttempts},
	}
	for _, p := range positive {
		if p.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %d", p.key, p.v))
		}
	}
	if d.CallLockTTL <= 0 {
		errs = append(errs, fmt.Errorf("DIALER_CALL_LOCK_TTL must be > 0, got %s", d.CallLockTTL))
	}
	if _, err := cron.ParseStandard(d.CapacityCron); err != nil {
		errs = append(errs, fmt.Errorf("CAPACITY_CRON is not a valid schedule: %v", err))
	}
	return errs
}

func (d DialerConfig) CadencePolicy() cadence.Policy {
	return cadence.Policy{
		MaxCallAttempts:        d.MaxCallAttempts,
		DefaultCadenceDays:     d.DefaultCadenceDays,
		InterestedCadenceDays:  d.InterestedCadenceDays,
		NotInterestedPauseDays: d.NotInterestedPauseDays,
		HangUpCooldownDays:     d.HangUpCooldownDays,
	}
}

func (d DialerConfig) SessionOptions() session.Options {
	return session.Options{
		Gap:        time.Duration(d.SessionGapMinutes) * time.Minute,
		StaleAfter: time.Duration(d.StaleCallMinutes) * time.Minute,
	}
}

func (d DialerConfig) CapacityOptions() capacity.Options {
	return capacity.Options{
		DailyTarget:         d.DailyTarget,
		UnreachableAttempts: d.UnreachableAttempts,
	}
}
