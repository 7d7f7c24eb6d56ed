// Package config loads process configuration from the environment.
// The server and the libctl tool both construct one Config at startup and
// pass it down; nothing reads the environment after that point.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the process needs to talk to the outside world.
type Config struct {
	Port string

	// MongoURI is the fully assembled and normalized connection string.
	MongoURI string
	// MongoDatabase is the database name, also injected into the URI when
	// the URI omits a path segment.
	MongoDatabase string

	ConnectTimeout  time.Duration
	QueryTimeout    time.Duration
	MaxConnectRetry int

	// JWTSecret signs session tokens issued by /api/auth/signin.
	JWTSecret string

	// CORSOrigin is the allowed origin for browser clients ("*" in dev).
	CORSOrigin string

	// OTLPEndpoint is the trace collector address; empty disables tracing.
	OTLPEndpoint string
}

// FromEnv builds a Config from the environment. It returns an error when no
// usable Mongo connection string can be assembled.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "4000"),
		MongoDatabase:   getEnv("RMS_MONGO_DB", "rms_library"),
		ConnectTimeout:  getDurationMS("MONGO_SERVER_SELECTION_TIMEOUT_MS", 5000),
		QueryTimeout:    getDurationMS("MONGO_QUERY_MAX_MS", 5000),
		MaxConnectRetry: getInt("MAX_MONGO_RETRIES", 10),
		JWTSecret:       getEnv("JWT_SECRET", "dev_secret_change_in_prod"),
		CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	uri := os.Getenv("RMS_MONGODB_URI")
	if uri == "" {
		uri = os.Getenv("MONGO_URL")
	}
	if uri == "" {
		uri = assembleURI(
			os.Getenv("RMS_MONGO_USER"),
			os.Getenv("RMS_MONGO_PASS"),
			os.Getenv("RMS_MONGO_HOST"),
			cfg.MongoDatabase,
		)
	}
	if uri == "" {
		return nil, fmt.Errorf("missing MongoDB connection string: set RMS_MONGODB_URI or RMS_MONGO_* components")
	}

	uri = NormalizeUserInfo(uri)
	uri = EnsureDatabase(uri, cfg.MongoDatabase)
	cfg.MongoURI = uri
	return cfg, nil
}

// assembleURI builds an Atlas-style URI from individual credential parts.
// Returns "" when any required part is missing.
func assembleURI(user, pass, host, db string) string {
	if user == "" || pass == "" || host == "" {
		return ""
	}
	return fmt.Sprintf("mongodb+srv://%s:%s@%s/%s?retryWrites=true&w=majority",
		user, url.QueryEscape(pass), host, db)
}

// EnsureDatabase appends a database segment to a URI that omits one. URIs in
// operator-managed .env files frequently end at the host or jump straight to
// query options.
func EnsureDatabase(uri, defaultDB string) string {
	protoSep := strings.Index(uri, "://")
	if protoSep == -1 {
		return uri
	}
	slash := strings.Index(uri[protoSep+3:], "/")
	if slash == -1 {
		// host only, possibly with options
		if q := strings.Index(uri, "?"); q != -1 {
			return uri[:q] + "/" + defaultDB + uri[q:]
		}
		return uri + "/" + defaultDB
	}
	pathStart := protoSep + 3 + slash
	pathAndQuery := uri[pathStart+1:]
	if pathAndQuery == "" {
		return uri + defaultDB
	}
	if strings.HasPrefix(pathAndQuery, "?") {
		return uri[:pathStart+1] + defaultDB + pathAndQuery
	}
	return uri
}

// NormalizeUserInfo re-encodes a password containing a raw '@', which would
// otherwise split the host component. Detected by more than one '@' after
// the scheme.
func NormalizeUserInfo(uri string) string {
	protoSep := strings.Index(uri, "://")
	if protoSep == -1 {
		return uri
	}
	scheme := uri[:protoSep]
	rest := uri[protoSep+3:]
	if strings.Count(rest, "@") <= 1 {
		return uri
	}
	lastAt := strings.LastIndex(rest, "@")
	userInfo := rest[:lastAt]
	hostPart := rest[lastAt+1:]
	colon := strings.Index(userInfo, ":")
	if colon == -1 {
		return uri
	}
	user := userInfo[:colon]
	pass := userInfo[colon+1:]
	return fmt.Sprintf("%s://%s:%s@%s", scheme, user, url.QueryEscape(pass), hostPart)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationMS(key string, defaultMS int) time.Duration {
	return time.Duration(getInt(key, defaultMS)) * time.Millisecond
}
