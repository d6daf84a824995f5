package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

// Config is the explicitly constructed configuration object. It merges the
// base config.yml, one API registry file per domain, and a secrets file,
// all keyed by their top-level YAML keys. No package-level singleton; the
// application entry point owns the lifecycle and injects it everywhere.
type Config struct {
	DataDir string

	data    map[string]any
	secrets map[string]any

	// Registries maps a domain name ("sports", "finance", ...) to the
	// validated API entries declared in <domain>_apis.yaml.
	Registries map[string][]APIEntry

	// SearchAPIs is the ordered cascade list from search_apis.yaml.
	SearchAPIs []SearchAPIEntry

	logger *logger_i.Logger
}

// APIEntry is one entry of a domain API registry. Entries are validated at
// load time so a malformed registry fails its feature at startup, not at
// call time.
type APIEntry struct {
	Name          string                      `yaml:"name" validate:"required"`
	Endpoint      string                      `yaml:"endpoint" validate:"required,url"`
	KeyName       string                      `yaml:"key_name"`
	KeyValue      string                      `yaml:"key_value"`
	InHeader      bool                        `yaml:"in_header"`
	QueryParam    string                      `yaml:"query_param"`
	DefaultParams map[string]string           `yaml:"default_params"`
	Headers       map[string]string           `yaml:"headers"`
	Functions     map[string]APIentryFunction `yaml:"functions" validate:"dive"`
}

// APIentryFunction is a named operation (data_type) an API exposes.
type APIentryFunction struct {
	Path     string            `yaml:"path"`
	Params   map[string]string `yaml:"params"`
	Required []string          `yaml:"required"`
	ListKey  string            `yaml:"list_key"`
}

// SearchAPIEntry is one entry of the web-search cascade list.
type SearchAPIEntry struct {
	Name       string            `yaml:"name" validate:"required"`
	Endpoint   string            `yaml:"endpoint" validate:"required,url"`
	KeyName    string            `yaml:"key_name"`
	KeyValue   string            `yaml:"key_value"`
	QueryParam string            `yaml:"query_param"`
	InHeader   bool              `yaml:"in_header"`
	Headers    map[string]string `yaml:"headers"`
}

var knownDomains = []string{
	"sports", "finance", "legal", "medical", "news", "weather", "entertainment", "media",
}

// Load builds a Config from the YAML files under dataDir. A missing
// config.yml is a warning, not an error: every getter has a default.
func Load(dataDir string) (*Config, error) {
	c := &Config{
		DataDir:    dataDir,
		data:       make(map[string]any),
		secrets:    make(map[string]any),
		Registries: make(map[string][]APIEntry),
		logger:     logger_i.NewLogger("config"),
	}

	if err := c.mergeFile(filepath.Join(dataDir, "config.yml"), c.data); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading config.yml: %w", err)
		}
		c.logger.Warn("config.yml not found, running on defaults", "dir", dataDir)
	}

	if err := c.mergeFile(filepath.Join(dataDir, "secrets.yml"), c.secrets); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading secrets.yml: %w", err)
	}

	validate := validator.New()
	for _, domain := range knownDomains {
		path := filepath.Join(dataDir, domain+"_apis.yaml")
		entries, err := loadRegistryFile(path, validate)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			// A bad registry kills its own domain, not the process.
			c.logger.Error("API registry rejected", "domain", domain, "error", err)
			continue
		}
		c.Registries[domain] = entries
		c.logger.Info("Loaded API registry", "domain", domain, "entries", len(entries))
	}

	searchPath := filepath.Join(dataDir, "search_apis.yaml")
	if raw, err := os.ReadFile(searchPath); err == nil {
		var entries []SearchAPIEntry
		if err := yaml.Unmarshal(raw, &entries); err != nil {
			c.logger.Error("search_apis.yaml rejected", "error", err)
		} else {
			valid := entries[:0]
			for _, e := range entries {
				if err := validate.Struct(e); err != nil {
					c.logger.Error("search API entry rejected", "name", e.Name, "error", err)
					continue
				}
				valid = append(valid, e)
			}
			c.SearchAPIs = valid
		}
	}

	return c, nil
}

func (c *Config) mergeFile(path string, into map[string]any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	parsed := make(map[string]any)
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return err
	}
	for k, v := range parsed {
		into[k] = v
	}
	c.logger.Info("Loaded config file", "path", path)
	return nil
}

func loadRegistryFile(path string, validate *validator.Validate) ([]APIEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []APIEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	for i := range entries {
		if err := validate.Struct(entries[i]); err != nil {
			return nil, fmt.Errorf("entry %q: %w", entries[i].Name, err)
		}
		if entries[i].QueryParam == "" {
			entries[i].QueryParam = "q"
		}
	}
	return entries, nil
}

// Get resolves a dotted path ("rag.chunk_size") against the merged config,
// falling back to def when any segment is absent.
func (c *Config) Get(path string, def any) any {
	return lookup(c.data, path, def)
}

func (c *Config) GetString(path string, def string) string {
	if v, ok := c.Get(path, def).(string); ok {
		return v
	}
	return def
}

func (c *Config) GetInt(path string, def int) int {
	switch v := c.Get(path, def).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// GetSecret resolves a dotted secret path, first against the loaded secret
// store, then against the environment variable named by uppercasing and
// underscore-joining the path ("openai.api_key" -> "OPENAI_API_KEY").
func (c *Config) GetSecret(path string) (string, bool) {
	if v, ok := lookup(c.secrets, path, nil).(string); ok && v != "" {
		return v, true
	}
	env := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(path))
	if v := os.Getenv(env); v != "" {
		return v, true
	}
	return "", false
}

const secretPrefix = "load_from_secrets."

// ResolveKey resolves a registry key_value, following the
// "load_from_secrets.<path>" indirection when present. The second return
// is false when the value is an indirection that cannot be resolved.
func (c *Config) ResolveKey(raw string) (string, bool) {
	if !strings.HasPrefix(raw, secretPrefix) {
		return raw, true
	}
	return c.GetSecret(strings.TrimPrefix(raw, secretPrefix))
}

func lookup(data map[string]any, path string, def any) any {
	var cur any = data
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		cur, ok = m[seg]
		if !ok {
			return def
		}
	}
	return cur
}

// RAGSettings are the generic RAG-relevant keys the ingestion and retrieval
// core consumes.
type RAGSettings struct {
	ChunkSize      int
	ChunkOverlap   int
	EmbeddingMode  string
	EmbeddingModel string
}

func (c *Config) RAG() RAGSettings {
	return RAGSettings{
		ChunkSize:      c.GetInt("rag.chunk_size", 500),
		ChunkOverlap:   c.GetInt("rag.chunk_overlap", 50),
		EmbeddingMode:  c.GetString("rag.embedding_mode", "openai"),
		EmbeddingModel: c.GetString("rag.embedding_model", "text-embedding-3-small"),
	}
}

// TierCapabilities returns the per-tier capability table from the "tiers"
// key of config.yml: tier name -> capability key -> value.
func (c *Config) TierCapabilities() map[string]map[string]any {
	out := make(map[string]map[string]any)
	tiers, ok := c.data["tiers"].(map[string]any)
	if !ok {
		return out
	}
	for tier, raw := range tiers {
		caps, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		out[tier] = caps
	}
	return out
}

// IsProd reports whether the service runs with the production profile.
func (c *Config) IsProd() bool {
	return c.GetString("app.env", os.Getenv("APP_ENV")) == "prod"
}
