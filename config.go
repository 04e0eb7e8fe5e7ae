package uibind

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML form of a binder configuration.
//
//	fallbackMessage: Something went wrong.
//	retryInterval: 500ms
//	maxAttempts: 20
//	defaultRules: true
//	rules:
//	  - name: newsletter
//	    method: gigya.accounts.showScreenSet
//	    defaults: {screenSet: Newsletter-Screens}
//	    rerender: screenset
type Config struct {
	FallbackMessage string          `yaml:"fallbackMessage,omitempty"`
	IDPrefix        string          `yaml:"idPrefix,omitempty"`
	RetryInterval   time.Duration   `yaml:"retryInterval,omitempty"`
	MaxAttempts     int             `yaml:"maxAttempts,omitempty"`
	Debounce        *time.Duration  `yaml:"debounce,omitempty"`
	ClickDelays     []time.Duration `yaml:"clickDelays,omitempty"`
	// DefaultRules keeps the built-in rules; rules listed in Rules replace
	// built-in rules of the same name.
	DefaultRules bool         `yaml:"defaultRules,omitempty"`
	Rules        []RuleConfig `yaml:"rules,omitempty"`
}

// RuleConfig is the YAML form of a Rule. Rerender names a predicate
// registered with RegisterPredicate.
type RuleConfig struct {
	Name         string `yaml:"name"`
	Method       string `yaml:"method"`
	Selector     string `yaml:"selector,omitempty"`
	Defaults     Params `yaml:"defaults,omitempty"`
	ErrorMessage string `yaml:"errorMessage,omitempty"`
	Rerender     string `yaml:"rerender,omitempty"`
}

// namedPredicate carries the name a predicate was registered under, so rules
// built from config convert back to the same name.
type namedPredicate struct {
	name string
	RerenderPredicate
}

var screensetPredicate RerenderPredicate = namedPredicate{name: "screenset", RerenderPredicate: ScreensetPredicate}

var (
	predicatesMu sync.RWMutex
	predicates   = map[string]RerenderPredicate{
		"screenset": screensetPredicate,
	}
)

// RegisterPredicate makes p available to rule configs under name. Rules
// should use the returned predicate so RuleConfigOf can name it.
func RegisterPredicate(name string, p RerenderPredicate) RerenderPredicate {
	if np, ok := p.(namedPredicate); ok {
		p = np.RerenderPredicate
	}
	named := namedPredicate{name: name, RerenderPredicate: p}
	predicatesMu.Lock()
	defer predicatesMu.Unlock()
	predicates[name] = named
	return named
}

func lookupPredicate(name string) (RerenderPredicate, bool) {
	predicatesMu.RLock()
	defer predicatesMu.RUnlock()
	p, ok := predicates[name]
	return p, ok
}

// PredicateName returns the name p was registered under, or "" if p is nil
// or did not come from the registry.
func PredicateName(p RerenderPredicate) string {
	if np, ok := p.(namedPredicate); ok {
		return np.name
	}
	return ""
}

// LoadConfig decodes a configuration.
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if _, err := cfg.BuildRules(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigFile reads a configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cfg, err := LoadConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// BuildRules returns the rule table the configuration describes. An empty
// configuration yields DefaultRules.
func (c *Config) BuildRules() ([]Rule, error) {
	var rules []Rule
	if c.DefaultRules || len(c.Rules) == 0 {
		rules = DefaultRules()
	}
	for i, rc := range c.Rules {
		r, err := rc.Rule()
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		replaced := false
		for j := range rules {
			if rules[j].Name == r.Name {
				rules[j] = r
				replaced = true
				break
			}
		}
		if !replaced {
			rules = append(rules, r)
		}
	}
	return rules, nil
}

// Rule converts the config to a Rule.
func (rc RuleConfig) Rule() (Rule, error) {
	if rc.Name == "" {
		return Rule{}, errors.New("rule name is required")
	}
	if rc.Method == "" {
		return Rule{}, fmt.Errorf("rule %q: method is required", rc.Name)
	}
	r := NewRule(rc.Name, rc.Method, normalizeParams(rc.Defaults))
	r.Selector = rc.Selector
	r.ErrorMessage = rc.ErrorMessage
	if rc.Rerender != "" {
		p, ok := lookupPredicate(rc.Rerender)
		if !ok {
			return Rule{}, fmt.Errorf("rule %q: unknown rerender predicate %q", rc.Name, rc.Rerender)
		}
		r.Predicate = p
	}
	return r, nil
}

// RuleConfigOf converts r back to its YAML form.
func RuleConfigOf(r Rule) RuleConfig {
	return RuleConfig{
		Name:         r.Name,
		Method:       r.Method,
		Selector:     r.Selector,
		Defaults:     r.Defaults.Clone(),
		ErrorMessage: r.ErrorMessage,
		Rerender:     PredicateName(r.Predicate),
	}
}

// Options returns the binder options the configuration describes.
func (c *Config) Options() ([]BinderOption, error) {
	rules, err := c.BuildRules()
	if err != nil {
		return nil, err
	}
	opts := []BinderOption{
		WithRules(rules),
		WithRetry(c.RetryInterval, c.MaxAttempts),
		WithFallbackMessage(c.FallbackMessage),
		WithIDPrefix(c.IDPrefix),
	}
	if c.Debounce != nil {
		opts = append(opts, WithDebounce(*c.Debounce))
	}
	if c.ClickDelays != nil {
		opts = append(opts, WithClickDelays(c.ClickDelays...))
	}
	return opts, nil
}

func normalizeParams(p Params) Params {
	if p == nil {
		return nil
	}
	out, _ := normalize(map[string]interface{}(p)).(Params)
	return out
}
