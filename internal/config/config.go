package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

//----------------------
// 共通: getenv ヘルパ
//----------------------

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Disabled は listen アドレスに指定するとそのサーバを起動しない値。
const Disabled = "off"

const (
	defaultPort            = 8080
	defaultGRPCAddr        = ":50051"
	defaultMetricsAddr     = ":9464"
	defaultRequestTimeout  = 3 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

//----------------------
// Config struct
//----------------------

type Config struct {
	// HTTP は 0.0.0.0:Port で待ち受ける
	Port        int
	GRPCAddr    string
	MetricsAddr string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	TraceStdout    bool
	LogDevelopment bool

	// 読み込んだ TOML ファイル（無ければ空）
	File string
}

// HTTPAddr は全インターフェースで listen するアドレスを返す。
func (c Config) HTTPAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.Port))
}

// GRPCEnabled / MetricsEnabled は "off" 指定でサーバを止める。
func (c Config) GRPCEnabled() bool    { return c.GRPCAddr != "" && c.GRPCAddr != Disabled }
func (c Config) MetricsEnabled() bool { return c.MetricsAddr != "" && c.MetricsAddr != Disabled }

// fileConfig は TODO_CONFIG_FILE で渡す TOML の形。
// 値は int / bool / 文字列どれで書いてもよく、パースは env と共通の処理に通す。
type fileConfig struct {
	Port            fileValue `toml:"port"`
	GRPCAddr        fileValue `toml:"grpc_addr"`
	MetricsAddr     fileValue `toml:"metrics_addr"`
	RequestTimeout  fileValue `toml:"request_timeout"`
	ShutdownTimeout fileValue `toml:"shutdown_timeout"`
	TraceStdout     fileValue `toml:"trace_stdout"`
	LogDevelopment  fileValue `toml:"log_development"`
}

// fileValue は TOML のスカラ値を env と同じ文字列表現で持つ。
type fileValue string

var _ toml.Unmarshaler = (*fileValue)(nil)

func (v *fileValue) UnmarshalTOML(data any) error {
	switch x := data.(type) {
	case string:
		*v = fileValue(x)
	case int64:
		*v = fileValue(strconv.FormatInt(x, 10))
	case bool:
		*v = fileValue(strconv.FormatBool(x))
	case float64:
		*v = fileValue(strconv.FormatFloat(x, 'f', -1, 64))
	default:
		return fmt.Errorf("unsupported config value type %T", data)
	}
	return nil
}

// Load は defaults -> TOML ファイル -> 環境変数 の順で Config を組み立てる。
// 値が壊れていても起動失敗にはせず、warn してデフォルトに落とす。
// ファイルを明示指定して読めなかった場合だけエラーを返す。
func Load(logger *zap.Logger) (Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var fc fileConfig
	path := os.Getenv("TODO_CONFIG_FILE")
	if path != "" {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	return Config{
		Port:            parsePort(logger, getenv("PORT", string(fc.Port))),
		GRPCAddr:        getenv("GRPC_ADDR", orDefault(string(fc.GRPCAddr), defaultGRPCAddr)),
		MetricsAddr:     getenv("METRICS_ADDR", orDefault(string(fc.MetricsAddr), defaultMetricsAddr)),
		RequestTimeout:  parseDuration(logger, "REQUEST_TIMEOUT", getenv("REQUEST_TIMEOUT", string(fc.RequestTimeout)), defaultRequestTimeout),
		ShutdownTimeout: parseDuration(logger, "SHUTDOWN_TIMEOUT", getenv("SHUTDOWN_TIMEOUT", string(fc.ShutdownTimeout)), defaultShutdownTimeout),
		TraceStdout:     parseBool(logger, "OTEL_TRACES_STDOUT", getenv("OTEL_TRACES_STDOUT", string(fc.TraceStdout))),
		LogDevelopment:  parseBool(logger, "LOG_DEVELOPMENT", getenv("LOG_DEVELOPMENT", string(fc.LogDevelopment))),
		File:            path,
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// 未設定・パース不能・範囲外はすべて 8080
func parsePort(logger *zap.Logger, raw string) int {
	if raw == "" {
		return defaultPort
	}
	p, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 16)
	if err != nil || p == 0 {
		logger.Warn("invalid PORT, fallback to default",
			zap.String("raw", raw),
			zap.Int("default", defaultPort),
		)
		return defaultPort
	}
	return int(p)
}

func parseDuration(logger *zap.Logger, key, raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		logger.Warn("invalid duration, fallback to default",
			zap.String("key", key),
			zap.String("raw", raw),
			zap.Duration("default", def),
		)
		return def
	}
	return d
}

func parseBool(logger *zap.Logger, key, raw string) bool {
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Warn("invalid bool, fallback to false",
			zap.String("key", key),
			zap.String("raw", raw),
		)
		return false
	}
	return b
}
