package llm

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Valid ranges for common request parameters, shared across providers.
const (
	// MinTemperature is the minimum allowed sampling temperature.
	MinTemperature = 0.0
	// MaxTemperature accommodates providers that accept up to 2.0.
	MaxTemperature = 2.0
	// DefaultMaxTokens bounds output length when the caller sets none.
	DefaultMaxTokens = 1024
	// MinTimeout is the smallest accepted request timeout.
	MinTimeout = 1 * time.Second
	// MaxTimeout is the largest accepted request timeout.
	MaxTimeout = 10 * time.Minute
)

// BaseProvider carries the thread-safe model name shared by all providers.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the configured model name. Safe for concurrent use.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel updates the model name. Safe for concurrent use.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// RequestOptions is the standardized, validated view of a request's options
// map. Providers translate it into their native parameters.
type RequestOptions struct {
	// MaxTokens caps the generated output length. Zero leaves the
	// provider default in place so the router can run uncapped.
	MaxTokens int
	// Model overrides the client's configured model for this request.
	Model string
	// Temperature controls sampling randomness; nil uses the provider default.
	Temperature *float64
	// System is the system instruction for the request.
	System string
}

// ParseRequestOptions extracts standardized parameters from an options map,
// falling back to defaults for missing or invalid entries.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{Model: defaultModel}
	if opts == nil {
		return options
	}

	if v, ok := opts["max_tokens"]; ok {
		if n, ok := safeInt(v); ok && n > 0 {
			options.MaxTokens = n
		}
	}
	if v, ok := opts["model"].(string); ok && v != "" {
		options.Model = v
	}
	if v, ok := opts["system"].(string); ok {
		options.System = v
	}
	if v, ok := opts["temperature"]; ok {
		if f, ok := safeFloat64(v); ok && f >= MinTemperature && f <= MaxTemperature {
			options.Temperature = &f
		}
	}

	return options
}

// ValidateBaseURL checks that an endpoint override is a well-formed
// http(s) URL. An empty string is valid and selects the provider default.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got: %s", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}
	return parsed.String(), nil
}

// ValidateTimeout clamps a timeout into the accepted range. Zero and
// negative values mean "use the default" and pass through as zero.
func ValidateTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	if timeout < MinTimeout {
		return MinTimeout
	}
	if timeout > MaxTimeout {
		return MaxTimeout
	}
	return timeout
}

// EstimateTokens approximates a token count from text length, roughly four
// characters per token for English text. Used when the provider omits usage.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// ClampFloat64 restricts val to [min, max].
func ClampFloat64(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func safeInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		if int64(int(v)) != v {
			return 0, false
		}
		return int(v), true
	case float64:
		if v != v {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func safeFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
