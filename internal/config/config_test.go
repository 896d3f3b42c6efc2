package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig(env string) Config {
	return Config{
		App:   AppConfig{Env: env, Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "outreach"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
}

func TestLoad_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validConfig("production")
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validConfig("local")
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Dialer.MaxCallAttempts != 10 || c.Dialer.DailyTarget != 600 {
		t.Fatalf("expected dialer defaults, got %+v", c.Dialer)
	}
}

func TestValidate_DialerBounds(t *testing.T) {
	c := validConfig("local")
	c.Dialer = DefaultDialer()
	c.Dialer.DailyTarget = 0
	c.Dialer.CapacityCron = "every tuesday"
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected dialer errors")
	}
	for _, want := range []string{"DIALER_DAILY_TARGET", "CAPACITY_CRON"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err.Error())
		}
	}
}

func TestLoadDialer_FromEnv(t *testing.T) {
	t.Setenv("DIALER_MAX_CALL_ATTEMPTS", "12")
	t.Setenv("DIALER_SESSION_GAP_MINUTES", "45")
	t.Setenv("DIALER_CALL_LOCK_TTL", "30m")
	t.Setenv("CAPACITY_AUTOFIX", "true")

	d, errs := loadDialer()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if d.MaxCallAttempts != 12 || d.CadencePolicy().MaxCallAttempts != 12 {
		t.Fatalf("expected max attempts from env")
	}
	if d.SessionOptions().Gap != 45*time.Minute {
		t.Fatalf("expected 45m gap, got %s", d.SessionOptions().Gap)
	}
	if d.CallLockTTL != 30*time.Minute || !d.CapacityAutoFix {
		t.Fatalf("unexpected dialer config %+v", d)
	}
	if d.DefaultCadenceDays != 3 {
		t.Fatalf("expected untouched defaults")
	}
}

func TestLoadDialer_BadValues(t *testing.T) {
	t.Setenv("DIALER_DAILY_TARGET", "lots")
	t.Setenv("CAPACITY_AUTOFIX", "maybe")
	_, errs := loadDialer()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}

func TestLoad_PoolsAndBadDuration(t *testing.T) {
	for k, v := range map[string]string{
		"APP_ENV": "local", "APP_PORT": "8080",
		"DB_HOST": "localhost", "DB_PORT": "5432", "DB_USER": "postgres", "DB_NAME": "outreach",
		"DB_MAX_OPEN_CONNS": "8",
		"REDIS_HOST":        "localhost", "REDIS_PORT": "6379", "REDIS_DB": "2",
		"JWT_SECRET": "secret",
	} {
		t.Setenv(k, v)
	}
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.PostgresPool().MaxOpenConns != 8 {
		t.Fatalf("pool = %+v", c.PostgresPool())
	}
	if rc := c.RedisClient(); rc.Addr != "localhost:6379" || rc.DB != 2 {
		t.Fatalf("redis = %+v", rc)
	}

	t.Setenv("JWT_ACCESS_TTL", "soon")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_ACCESS_TTL") {
		t.Fatalf("expected duration error, got %v", err)
	}
}
