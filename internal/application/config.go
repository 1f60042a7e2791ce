// Package application holds the configuration schema and loading logic that
// assembles the triage pipeline from YAML.
package application

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config defines the complete specification for a triage deployment and
// serves as the primary configuration entry point for the system.
type Config struct {
	// Providers configures the LLM backends available to the pipeline,
	// keyed by provider name (openai, anthropic, google).
	Providers map[string]ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
	// Router configures the model and prompt used for capability selection.
	Router RouterConfig `yaml:"router" validate:"required"`
	// Answerer configures retrieval-augmented answer generation.
	Answerer AnswererConfig `yaml:"answerer" validate:"required"`
	// Scorer configures post-hoc answer quality evaluation. Optional;
	// when omitted, answers go unscored.
	Scorer *ScorerConfig `yaml:"scorer,omitempty"`
	// Agents lists the domain agents to register, one per domain.
	Agents []AgentConfig `yaml:"agents" validate:"required,min=1,dive"`
	// Embedding configures the model used to embed queries for retrieval.
	Embedding EmbeddingConfig `yaml:"embedding" validate:"required"`
}

// ProviderConfig holds the connection settings for one LLM backend.
type ProviderConfig struct {
	// APIKey authenticates requests to the provider. Values of the form
	// ${ENV_VAR} are expanded from the environment at load time.
	APIKey string `yaml:"api_key" validate:"required"`
	// BaseURL overrides the provider's default endpoint, typically for
	// proxies or compatible self-hosted backends.
	BaseURL string `yaml:"base_url,omitempty" validate:"omitempty,url"`
	// TimeoutSeconds bounds each request to the provider.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"omitempty,min=1,max=600"`
}

// Timeout returns the configured request timeout, or zero when unset.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// RouterConfig selects the model and routing policy for capability
// selection. The model must support tool calling.
type RouterConfig struct {
	// Model specifies the provider and model in "provider/model" format.
	Model string `yaml:"model" validate:"required,modelformat"`
	// PromptPath points at the routing policy file. When empty, the
	// built-in policy ships with the binary is used.
	PromptPath string `yaml:"prompt_path,omitempty"`
}

// AnswererConfig tunes retrieval-augmented answer generation.
type AnswererConfig struct {
	// Model specifies the provider and model in "provider/model" format.
	Model string `yaml:"model" validate:"required,modelformat"`
	// PromptPath points at the grounding prompt template. When empty, the
	// built-in template is used.
	PromptPath string `yaml:"prompt_path,omitempty"`
	// TopK is the number of passages retrieved per query.
	TopK int `yaml:"top_k" validate:"omitempty,min=1,max=20"`
	// MaxTokens caps the generated answer length.
	MaxTokens int `yaml:"max_tokens" validate:"omitempty,min=10,max=4000"`
	// Temperature controls generation randomness. Grounded answering
	// wants 0.
	Temperature float64 `yaml:"temperature" validate:"min=0,max=2"`
}

// ScorerConfig selects the judge model for quality evaluation.
type ScorerConfig struct {
	// Model specifies the provider and model in "provider/model" format.
	Model string `yaml:"model" validate:"required,modelformat"`
}

// AgentConfig declares one domain agent and the index it answers from.
type AgentConfig struct {
	// Domain identifies the agent's area: hr, tech, or finance.
	Domain string `yaml:"domain" validate:"required,oneof=hr tech finance"`
	// IndexPath locates the agent's vector index on disk.
	IndexPath string `yaml:"index_path" validate:"required"`
}

// EmbeddingConfig selects the embedding model used for retrieval.
type EmbeddingConfig struct {
	// Model specifies the provider and model in "provider/model" format.
	Model string `yaml:"model" validate:"required,modelformat"`
}

// LoadConfig reads, expands, and validates a YAML configuration file.
// Environment references of the form ${VAR} in provider API keys are
// resolved before validation so missing secrets fail fast.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates raw YAML configuration bytes.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	for name, provider := range cfg.Providers {
		provider.APIKey = os.ExpandEnv(provider.APIKey)
		if provider.APIKey == "" {
			return nil, fmt.Errorf("provider %s: api_key resolves to empty", name)
		}
		cfg.Providers[name] = provider
	}
	cfg.applyDefaults()

	v := validator.New()
	if err := RegisterConfigValidators(v); err != nil {
		return nil, err
	}
	if err := v.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.checkAgentDomains(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills optional answerer settings with their standard values.
func (c *Config) applyDefaults() {
	if c.Answerer.TopK == 0 {
		c.Answerer.TopK = 3
	}
	if c.Answerer.MaxTokens == 0 {
		c.Answerer.MaxTokens = 130
	}
}

// checkAgentDomains rejects configurations that declare the same domain
// twice. Registration would fail anyway; failing at load gives a clearer
// error.
func (c *Config) checkAgentDomains() error {
	seen := make(map[string]bool, len(c.Agents))
	for _, ag := range c.Agents {
		if seen[ag.Domain] {
			return fmt.Errorf("duplicate agent domain in config: %s", ag.Domain)
		}
		seen[ag.Domain] = true
	}
	return nil
}
