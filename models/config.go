package models

import (
	"errors"
	"sync"
	"time"
)

// DefaultMaxUploadBytes is the upload limit applied when none is configured.
const DefaultMaxUploadBytes int64 = 32 << 20

// MaxUploadBytesLimit is the largest upload limit an administrator can set.
// The request body limit of the server is derived from it.
const MaxUploadBytesLimit int64 = 255 << 20

// AppConfig holds global application settings (single-row table app_config id=1)
type AppConfig struct {
	AllowRegistration bool  `json:"allow_registration" form:"allow_registration"`
	MaxUsers          int64 `json:"max_users" form:"max_users" validate:"gte=0"` // 0 means unlimited
	RequireCaptcha    bool  `json:"require_captcha" form:"require_captcha"`
	MaxUploadBytes    int64 `json:"max_upload_bytes" form:"max_upload_bytes" validate:"gte=1,lte=267386880"`
}

// RegistrationOpen reports whether a new account may be created given the
// current number of users.
func (c AppConfig) RegistrationOpen(userCount int64) bool {
	if !c.AllowRegistration {
		return false
	}
	return c.MaxUsers == 0 || userCount < c.MaxUsers
}

var (
	cachedConfig    AppConfig
	configMu        sync.RWMutex
	configCacheTime time.Time
	configCacheTTL  = 5 * time.Minute
)

// ErrInvalidConfig is returned when an update carries out-of-range values.
var ErrInvalidConfig = errors.New("invalid configuration value")

// loadConfigFromDB loads the config row (id=1) from the database.
func loadConfigFromDB() (AppConfig, error) {
	var cfg AppConfig
	err := db.QueryRow(`SELECT allow_registration, max_users,
        COALESCE(require_captcha, 0),
        COALESCE(max_upload_bytes, ?)
        FROM app_config WHERE id = 1`, DefaultMaxUploadBytes).
		Scan(&cfg.AllowRegistration, &cfg.MaxUsers, &cfg.RequireCaptcha, &cfg.MaxUploadBytes)
	if err != nil {
		return AppConfig{}, err
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return cfg, nil
}

// GetAppConfig returns the cached configuration, reloading it once the cache
// is older than configCacheTTL.
func GetAppConfig() (AppConfig, error) {
	configMu.RLock()
	if !configCacheTime.IsZero() && time.Since(configCacheTime) < configCacheTTL {
		cfg := cachedConfig
		configMu.RUnlock()
		return cfg, nil
	}
	configMu.RUnlock()

	return RefreshAppConfig()
}

// RefreshAppConfig forces a reload from the database (used after updates).
func RefreshAppConfig() (AppConfig, error) {
	cfg, err := loadConfigFromDB()
	if err != nil {
		return AppConfig{}, err
	}
	configMu.Lock()
	cachedConfig = cfg
	configCacheTime = time.Now()
	configMu.Unlock()
	return cfg, nil
}

// InvalidateAppConfig drops the cached configuration.
func InvalidateAppConfig() {
	configMu.Lock()
	configCacheTime = time.Time{}
	configMu.Unlock()
}

// UpdateAppConfig stores all settings and refreshes the cache.
func UpdateAppConfig(cfg AppConfig) (AppConfig, error) {
	if errs := ValidateFields(&cfg, "MaxUsers", "MaxUploadBytes"); len(errs) > 0 {
		return AppConfig{}, ErrInvalidConfig
	}

	_, err := db.Exec(`UPDATE app_config
        SET allow_registration = ?, max_users = ?, require_captcha = ?, max_upload_bytes = ?
        WHERE id = 1`,
		cfg.AllowRegistration, cfg.MaxUsers, cfg.RequireCaptcha, cfg.MaxUploadBytes)
	if err != nil {
		return AppConfig{}, err
	}
	return RefreshAppConfig()
}
