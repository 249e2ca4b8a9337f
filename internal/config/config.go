package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/n1ckdm/pickems-api/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                      string
	ServiceName                 string
	ServiceVersion              string
	HTTPAddr                    string
	ReadTimeout                 time.Duration
	WriteTimeout                time.Duration
	LogLevel                    logging.Level
	DBURL                       string
	DBDisablePreparedBinary     bool
	CacheEnabled                bool
	CacheTTL                    time.Duration
	CORSAllowedOrigins          []string
	PprofEnabled                bool
	PprofAddr                   string
	UptraceEnabled              bool
	UptraceDSN                  string
	UptraceLogsEnabled          bool
	PyroscopeEnabled            bool
	PyroscopeServerAddress      string
	PyroscopeAppName            string
	PyroscopeAuthToken          string
	PyroscopeBasicAuthUser      string
	PyroscopeBasicAuthPassword  string
	PyroscopeUploadRate         time.Duration
	BetterStackEnabled          bool
	BetterStackEndpoint         string
	BetterStackToken            string
	BetterStackMinLevel         logging.Level
	BetterStackTimeout          time.Duration
	AuthBaseURL                 string
	AuthUserInfoPath            string
	AuthAPIKey                  string
	AuthAdminRole               string
	AuthTimeout                 time.Duration
	AuthCacheTTL                time.Duration
	LeagueAPIEnabled            bool
	LeagueAPIBaseURL            string
	LeagueAPIToken              string
	LeagueAPITimeout            time.Duration
	LeagueAPIMaxRetries         int
	LeagueAPIRateLimitRPS       float64
	LeagueAPIRateLimitBurst     int
	LeagueAPICircuitEnabled     bool
	LeagueAPICircuitFailures    int
	LeagueAPICircuitOpenTimeout time.Duration
	LeagueAPICircuitProbes      int
	DivisionID                  int64
	Game                        string
	Season                      string
	SyncBatchSize               int
	SyncFetchTimeout            time.Duration
	PickLockLead                time.Duration
	BasePoints                  int
	MapBonusPoints              int
	SettlementWorkers           int
	ResultFetchWorkers          int
	CronSecret                  string
	SchedulerEnabled            bool
	SyncInterval                time.Duration
	SettleInterval              time.Duration
	TriggerRateLimit            int
	TriggerRateWindow           time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	betterStackEnabled, err := strconv.ParseBool(getEnv("BETTERSTACK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_ENABLED: %w", err)
	}
	betterStackEndpoint := strings.TrimSpace(getEnv("BETTERSTACK_ENDPOINT", ""))
	if betterStackEnabled && betterStackEndpoint == "" {
		return Config{}, fmt.Errorf("BETTERSTACK_ENDPOINT is required when BETTERSTACK_ENABLED=true")
	}
	betterStackTimeout, err := time.ParseDuration(getEnv("BETTERSTACK_TIMEOUT", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_TIMEOUT: %w", err)
	}
	if betterStackTimeout <= 0 {
		return Config{}, fmt.Errorf("BETTERSTACK_TIMEOUT must be > 0")
	}

	authTimeout, err := time.ParseDuration(getEnv("AUTH_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse AUTH_TIMEOUT: %w", err)
	}
	if authTimeout <= 0 {
		return Config{}, fmt.Errorf("AUTH_TIMEOUT must be > 0")
	}
	authCacheTTL, err := time.ParseDuration(getEnv("AUTH_CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse AUTH_CACHE_TTL: %w", err)
	}
	if authCacheTTL <= 0 {
		return Config{}, fmt.Errorf("AUTH_CACHE_TTL must be > 0")
	}

	leagueAPIEnabled, err := strconv.ParseBool(getEnv("LEAGUE_API_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_API_ENABLED: %w", err)
	}
	leagueAPIToken := strings.TrimSpace(getEnv("LEAGUE_API_TOKEN", ""))
	if leagueAPIEnabled && leagueAPIToken == "" {
		return Config{}, fmt.Errorf("LEAGUE_API_TOKEN is required when LEAGUE_API_ENABLED=true")
	}
	leagueAPITimeout, err := time.ParseDuration(getEnv("LEAGUE_API_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_API_TIMEOUT: %w", err)
	}
	if leagueAPITimeout <= 0 {
		return Config{}, fmt.Errorf("LEAGUE_API_TIMEOUT must be > 0")
	}
	leagueAPIMaxRetries, err := getEnvAsInt("LEAGUE_API_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_API_MAX_RETRIES: %w", err)
	}
	if leagueAPIMaxRetries < 0 {
		return Config{}, fmt.Errorf("LEAGUE_API_MAX_RETRIES must be >= 0")
	}
	leagueAPIRateLimitRPS, err := getEnvAsFloat("LEAGUE_API_RATE_LIMIT_RPS", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_API_RATE_LIMIT_RPS: %w", err)
	}
	if leagueAPIRateLimitRPS <= 0 {
		return Config{}, fmt.Errorf("LEAGUE_API_RATE_LIMIT_RPS must be > 0")
	}
	leagueAPIRateLimitBurst, err := getEnvAsInt("LEAGUE_API_RATE_LIMIT_BURST", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_API_RATE_LIMIT_BURST: %w", err)
	}
	if leagueAPIRateLimitBurst < 1 {
		return Config{}, fmt.Errorf("LEAGUE_API_RATE_LIMIT_BURST must be >= 1")
	}
	leagueAPICircuitEnabled, err := strconv.ParseBool(getEnv("LEAGUE_API_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_API_CIRCUIT_ENABLED: %w", err)
	}
	leagueAPICircuitFailures, err := getEnvAsInt("LEAGUE_API_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_API_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if leagueAPICircuitFailures < 1 {
		return Config{}, fmt.Errorf("LEAGUE_API_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	leagueAPICircuitOpenTimeout, err := time.ParseDuration(getEnv("LEAGUE_API_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_API_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if leagueAPICircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("LEAGUE_API_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	leagueAPICircuitProbes, err := getEnvAsInt("LEAGUE_API_CIRCUIT_HALF_OPEN_PROBES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_API_CIRCUIT_HALF_OPEN_PROBES: %w", err)
	}
	if leagueAPICircuitProbes < 1 {
		return Config{}, fmt.Errorf("LEAGUE_API_CIRCUIT_HALF_OPEN_PROBES must be >= 1")
	}

	divisionID, err := getEnvAsInt64("DIVISION_ID", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse DIVISION_ID: %w", err)
	}
	if leagueAPIEnabled && divisionID <= 0 {
		return Config{}, fmt.Errorf("DIVISION_ID is required when LEAGUE_API_ENABLED=true")
	}

	syncBatchSize, err := getEnvAsInt("SYNC_BATCH_SIZE", 25)
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_BATCH_SIZE: %w", err)
	}
	if syncBatchSize < 1 {
		return Config{}, fmt.Errorf("SYNC_BATCH_SIZE must be >= 1")
	}
	syncFetchTimeout, err := time.ParseDuration(getEnv("SYNC_FETCH_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_FETCH_TIMEOUT: %w", err)
	}
	if syncFetchTimeout <= 0 {
		return Config{}, fmt.Errorf("SYNC_FETCH_TIMEOUT must be > 0")
	}

	pickLockLead, err := time.ParseDuration(getEnv("PICK_LOCK_LEAD", "2h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PICK_LOCK_LEAD: %w", err)
	}
	if pickLockLead < 0 {
		return Config{}, fmt.Errorf("PICK_LOCK_LEAD must be >= 0")
	}

	basePoints, err := getEnvAsInt("BASE_POINTS", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse BASE_POINTS: %w", err)
	}
	if basePoints < 0 {
		return Config{}, fmt.Errorf("BASE_POINTS must be >= 0")
	}
	mapBonusPoints, err := getEnvAsInt("MAP_BONUS_POINTS", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAP_BONUS_POINTS: %w", err)
	}
	if mapBonusPoints < 0 {
		return Config{}, fmt.Errorf("MAP_BONUS_POINTS must be >= 0")
	}

	settlementWorkers, err := getEnvAsInt("SETTLEMENT_WORKERS", 8)
	if err != nil {
		return Config{}, fmt.Errorf("parse SETTLEMENT_WORKERS: %w", err)
	}
	if settlementWorkers < 1 {
		return Config{}, fmt.Errorf("SETTLEMENT_WORKERS must be >= 1")
	}
	resultFetchWorkers, err := getEnvAsInt("RESULT_FETCH_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse RESULT_FETCH_WORKERS: %w", err)
	}
	if resultFetchWorkers < 1 {
		return Config{}, fmt.Errorf("RESULT_FETCH_WORKERS must be >= 1")
	}

	schedulerEnabled, err := strconv.ParseBool(getEnv("SCHEDULER_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCHEDULER_ENABLED: %w", err)
	}
	syncInterval, err := time.ParseDuration(getEnv("SYNC_INTERVAL", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_INTERVAL: %w", err)
	}
	if syncInterval <= 0 {
		return Config{}, fmt.Errorf("SYNC_INTERVAL must be > 0")
	}
	settleInterval, err := time.ParseDuration(getEnv("SETTLE_INTERVAL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SETTLE_INTERVAL: %w", err)
	}
	if settleInterval <= 0 {
		return Config{}, fmt.Errorf("SETTLE_INTERVAL must be > 0")
	}

	triggerRateLimit, err := getEnvAsInt("TRIGGER_RATE_LIMIT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse TRIGGER_RATE_LIMIT: %w", err)
	}
	if triggerRateLimit < 1 {
		return Config{}, fmt.Errorf("TRIGGER_RATE_LIMIT must be >= 1")
	}
	triggerRateWindow, err := time.ParseDuration(getEnv("TRIGGER_RATE_WINDOW", "1m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TRIGGER_RATE_WINDOW: %w", err)
	}
	if triggerRateWindow <= 0 {
		return Config{}, fmt.Errorf("TRIGGER_RATE_WINDOW must be > 0")
	}

	cfg := Config{
		AppEnv:                      appEnv,
		ServiceName:                 getEnv("APP_SERVICE_NAME", "pickems-api"),
		ServiceVersion:              getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                    getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                 readTimeout,
		WriteTimeout:                writeTimeout,
		LogLevel:                    parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		DBURL:                       getEnv("DB_URL", ""),
		DBDisablePreparedBinary:     dbDisablePreparedBinary,
		CacheEnabled:                cacheEnabled,
		CacheTTL:                    cacheTTL,
		CORSAllowedOrigins:          splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		PprofEnabled:                pprofEnabled,
		PprofAddr:                   pprofAddr,
		UptraceEnabled:              uptraceEnabled,
		UptraceDSN:                  uptraceDSN,
		UptraceLogsEnabled:          uptraceLogsEnabled,
		PyroscopeEnabled:            pyroscopeEnabled,
		PyroscopeServerAddress:      pyroscopeServerAddress,
		PyroscopeAuthToken:          strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:      strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:  strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:         pyroscopeUploadRate,
		BetterStackEnabled:          betterStackEnabled,
		BetterStackEndpoint:         betterStackEndpoint,
		BetterStackToken:            strings.TrimSpace(getEnv("BETTERSTACK_TOKEN", "")),
		BetterStackMinLevel:         parseLogLevel(getEnv("BETTERSTACK_MIN_LEVEL", "warn")),
		BetterStackTimeout:          betterStackTimeout,
		AuthBaseURL:                 getEnv("AUTH_BASE_URL", "http://localhost:9999"),
		AuthUserInfoPath:            getEnv("AUTH_USERINFO_PATH", "/auth/v1/user"),
		AuthAPIKey:                  strings.TrimSpace(getEnv("AUTH_API_KEY", "")),
		AuthAdminRole:               strings.TrimSpace(getEnv("AUTH_ADMIN_ROLE", "admin")),
		AuthTimeout:                 authTimeout,
		AuthCacheTTL:                authCacheTTL,
		LeagueAPIEnabled:            leagueAPIEnabled,
		LeagueAPIBaseURL:            strings.TrimSpace(getEnv("LEAGUE_API_BASE_URL", "https://api.leagueos.gg/v1")),
		LeagueAPIToken:              leagueAPIToken,
		LeagueAPITimeout:            leagueAPITimeout,
		LeagueAPIMaxRetries:         leagueAPIMaxRetries,
		LeagueAPIRateLimitRPS:       leagueAPIRateLimitRPS,
		LeagueAPIRateLimitBurst:     leagueAPIRateLimitBurst,
		LeagueAPICircuitEnabled:     leagueAPICircuitEnabled,
		LeagueAPICircuitFailures:    leagueAPICircuitFailures,
		LeagueAPICircuitOpenTimeout: leagueAPICircuitOpenTimeout,
		LeagueAPICircuitProbes:      leagueAPICircuitProbes,
		DivisionID:                  divisionID,
		Game:                        strings.TrimSpace(getEnv("GAME", "")),
		Season:                      strings.TrimSpace(getEnv("SEASON", "")),
		SyncBatchSize:               syncBatchSize,
		SyncFetchTimeout:            syncFetchTimeout,
		PickLockLead:                pickLockLead,
		BasePoints:                  basePoints,
		MapBonusPoints:              mapBonusPoints,
		SettlementWorkers:           settlementWorkers,
		ResultFetchWorkers:          resultFetchWorkers,
		CronSecret:                  strings.TrimSpace(getEnv("CRON_SECRET", "")),
		SchedulerEnabled:            schedulerEnabled,
		SyncInterval:                syncInterval,
		SettleInterval:              settleInterval,
		TriggerRateLimit:            triggerRateLimit,
		TriggerRateWindow:           triggerRateWindow,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if cfg.SchedulerEnabled && !cfg.LeagueAPIEnabled {
		return Config{}, fmt.Errorf("SCHEDULER_ENABLED requires LEAGUE_API_ENABLED=true")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsInt64(key string, fallback int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
