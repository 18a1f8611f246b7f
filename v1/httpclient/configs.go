package httpclient

import "time"

const (
	// HookClass is the hook class of outgoing requests. Args: *Request.
	// The exit action receives a *Response, or nil when no response arrived.
	HookClass = "httpclient.Client"

	OpDo = "Do"
)

// Config holds the client settings.
type Config struct {
	BaseURL string `yaml:"base_url" envconfig:"HTTP_CLIENT_BASE_URL"`

	Timeout time.Duration `yaml:"timeout" envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`

	RetryCount       int           `yaml:"retry_count" envconfig:"HTTP_CLIENT_RETRY_COUNT"`
	RetryWaitTime    time.Duration `yaml:"retry_wait_time" envconfig:"HTTP_CLIENT_RETRY_WAIT_TIME" default:"1s"`
	RetryMaxWaitTime time.Duration `yaml:"retry_max_wait_time" envconfig:"HTTP_CLIENT_RETRY_MAX_WAIT_TIME" default:"30s"`

	UserAgent string `yaml:"user_agent" envconfig:"HTTP_CLIENT_USER_AGENT"`
}
