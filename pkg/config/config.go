// implements the config object.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	KeyPort            = "PORT"
	KeyConfigServerURL = "CONFIG_SERVER_URL"
	KeyLogURL          = "LOG_URL"
	KeyLogAPIToken     = "LOG_API_TOKEN"
	KeyServiceName     = "SERVICE_NAME"
	KeyUpstreamTimeout = "UPSTREAM_TIMEOUT"
	KeyCORSOrigins     = "CORS_ORIGINS"
	KeyLogLevel        = "LOG_LEVEL"
	KeyAppEnv          = "APP_ENV"
)

// represents the configuration for the app
type Config struct {
	ApiPort         string
	ConfigServerURL string
	LogURL          string
	LogAPIToken     string
	ServiceName     string
	UpstreamTimeout time.Duration
	CORSOrigins     []string
	LogLevel        string
	AppEnv          string
}

// returns the configuration read from the .env file, the optional config
// file at filepath and the environment, in increasing precedence
func Parse(filepath string) (*Config, error) {

	// a missing .env is fine, variables may come from the environment
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if filepath != "" {
		v.SetConfigFile(filepath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "could not read config file")
		}
	}

	return Load(v)
}

// builds and validates the configuration from an already prepared viper instance
func Load(v *viper.Viper) (*Config, error) {

	var missing []string
	required := func(key string) string {
		value := strings.TrimSpace(v.GetString(key))
		if value == "" {
			missing = append(missing, key)
		}
		return value
	}

	config := Config{
		ApiPort:         strings.TrimSpace(v.GetString(KeyPort)),
		ConfigServerURL: required(KeyConfigServerURL),
		LogURL:          required(KeyLogURL),
		LogAPIToken:     required(KeyLogAPIToken),
		ServiceName:     v.GetString(KeyServiceName),
		UpstreamTimeout: v.GetDuration(KeyUpstreamTimeout),
		CORSOrigins:     splitList(v.GetString(KeyCORSOrigins)),
		LogLevel:        strings.ToLower(v.GetString(KeyLogLevel)),
		AppEnv:          strings.ToLower(v.GetString(KeyAppEnv)),
	}

	if len(missing) > 0 {
		return nil, errors.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	for key, raw := range map[string]string{
		KeyConfigServerURL: config.ConfigServerURL,
		KeyLogURL:          config.LogURL,
	} {
		if err := validURL(raw); err != nil {
			return nil, errors.Wrapf(err, "invalid %s", key)
		}
	}

	//setting a default value for api port if empty
	if config.ApiPort == "" {
		config.ApiPort = "3000"
	}

	//setting a default value for the upstream timeout if not positive
	if config.UpstreamTimeout <= 0 {
		config.UpstreamTimeout = 15 * time.Second
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "3000")
	v.SetDefault(KeyServiceName, "drone-api")
	v.SetDefault(KeyUpstreamTimeout, "15s")
	v.SetDefault(KeyCORSOrigins, "http://localhost:5173,*")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyAppEnv, "development")
}

func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("%q is not an absolute http(s) url", raw)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
