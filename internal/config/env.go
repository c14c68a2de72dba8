package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	// An empty key disables authentication.
	APIKey string `envconfig:"API_KEY"`
}

type StorageEnv struct {
	// local, s3 or none. none keeps the board in memory only.
	Type    string `envconfig:"STORAGE_TYPE" default:"none"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".agentcal/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"agentcal/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
}

type BoardEnv struct {
	Timezone string `envconfig:"BOARD_TIMEZONE" default:"UTC"`
	View     string `envconfig:"BOARD_VIEW" default:"week"`
	Sync     bool   `envconfig:"BOARD_SYNC" default:"true"`
}

type Env struct {
	BaseEnv
	StorageEnv
	BoardEnv
}

const namespace = "AGENTCAL"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if _, err := env.Location(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

// Location is the zone that decides where one board day ends.
func (e *BoardEnv) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid board timezone %q: %w", e.Timezone, err)
	}
	return loc, nil
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func BoardEnvFromEnv(env *Env) *BoardEnv {
	return &env.BoardEnv
}
