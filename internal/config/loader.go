package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/healthcoresys/core/pkg/constants"
)

// envPrefix namespaces the broker's environment variables.
const envPrefix = "HC_BROKER"

// Load resolves the configuration from defaults, an optional config file,
// and environment variables, in that precedence order.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/healthcore-broker/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyAliases(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindLegacyAliases maps the unprefixed environment names older deployments
// still set. The first name in each list wins; consumers see only the
// resolved struct and never re-implement this fallback chain.
func bindLegacyAliases(v *viper.Viper) {
	aliases := map[string][]string{
		"jwt.signing_kid":           {"JWT_SIGNING_KID"},
		"jwt.inline_private_pem":    {"JWT_SIGNING_PRIVATE_PEM"},
		"jwt.secret_ref":            {"JWT_PRIVATE_SECRET_REF", "JWT_PRIVATE_SECRET_ARN"},
		"jwt.ttl_seconds":           {"ACCESS_TTL_SECONDS"},
		"jwt.issuer":                {"EXPECTED_ISSUER", "ISSUER"},
		"jwt.audience":              {"PHI_AUDIENCE", "AUDIENCE"},
		"upstream.issuer":           {"UPSTREAM_ISSUER", "AUTH0_ISSUER"},
		"upstream.audience":         {"UPSTREAM_AUDIENCE", "AUTH0_AUDIENCE"},
		"rate_limit.capacity":       {"RATE_LIMIT_POINTS"},
		"rate_limit.window_seconds": {"RATE_LIMIT_WINDOW"},
		"cors.allowed_origins":      {"ALLOWED_ORIGINS"},
	}
	for key, names := range aliases {
		args := append([]string{key, strings.ToUpper(envPrefix + "_" + strings.NewReplacer(".", "_").Replace(key))}, names...)
		// BindEnv's first argument is the key; the rest are env names in
		// precedence order.
		_ = v.BindEnv(args...)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.debug", false)

	v.SetDefault("jwt.ttl_seconds", int(constants.AccessTokenDefaultTTL.Seconds()))
	v.SetDefault("jwt.issuer", constants.DefaultIssuer)
	v.SetDefault("jwt.audience", constants.DefaultAudience)
	v.SetDefault("jwt.jwks_path", "public/jwks.json")

	v.SetDefault("upstream.fetch_timeout", 10)
	v.SetDefault("upstream.key_cache_ttl", 300)

	v.SetDefault("rate_limit.capacity", constants.DefaultRateLimitCapacity)
	v.SetDefault("rate_limit.window_seconds", int(constants.DefaultRateLimitWindow.Seconds()))
	v.SetDefault("rate_limit.store", "memory")

	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.timeout", 5)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.topic", "broker-audit")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
