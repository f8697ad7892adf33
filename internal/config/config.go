package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthSecret      string
	EnableLocalAuth bool
	AdminUser       string
	AdminPassHash   string // bcrypt

	CORSOrigins []string

	RollbarToken string

	// AcademicYearStartMonth is the month semester "1" begins.
	AcademicYearStartMonth time.Month

	// Cron specs; empty disables the job.
	ExpirySweepSpec      string
	ReconcileRetrySpec   string
	ReconcileRetryMinAge time.Duration

	EventWebhookURL          string
	EventWebhookTokenURL     string
	EventWebhookClientID     string
	EventWebhookClientSecret string
}

// FromEnv loads .env (if present) and reads the process environment.
func FromEnv() Config {
	_ = godotenv.Load()

	month := envInt("ACADEMIC_YEAR_START_MONTH", 8)
	if month < 1 || month > 12 {
		month = 8
	}
	return Config{
		Env:      envOr("ENV", "development"),
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		AuthSecret:      envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		EnableLocalAuth: envBool("ENABLE_LOCAL_AUTH", true),
		AdminUser:       envOr("ADMIN_USER", "admin"),
		AdminPassHash:   envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),

		RollbarToken: os.Getenv("ROLLBAR_TOKEN"),

		AcademicYearStartMonth: time.Month(month),

		ExpirySweepSpec:      envOr("EXPIRY_SWEEP_SPEC", "@every 1m"),
		ReconcileRetrySpec:   envOr("RECONCILE_RETRY_SPEC", "@every 5m"),
		ReconcileRetryMinAge: envDuration("RECONCILE_RETRY_MIN_AGE", time.Minute),

		EventWebhookURL:          os.Getenv("EVENT_WEBHOOK_URL"),
		EventWebhookTokenURL:     os.Getenv("EVENT_WEBHOOK_TOKEN_URL"),
		EventWebhookClientID:     os.Getenv("EVENT_WEBHOOK_CLIENT_ID"),
		EventWebhookClientSecret: os.Getenv("EVENT_WEBHOOK_CLIENT_SECRET"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
