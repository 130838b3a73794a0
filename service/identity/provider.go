package identity

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Provider resolves a caller credential to an opaque owner identifier.
type Provider interface {
	Identify(ctx context.Context, credential string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, credential string) (string, error)

func (f ProviderFunc) Identify(ctx context.Context, credential string) (string, error) {
	return f(ctx, credential)
}

// Config selects and parameterizes an identity strategy.
type Config struct {
	Strategy string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	// Owner is the identity assigned by the guest strategy.
	Owner string `json:"owner,omitempty" yaml:"owner,omitempty"`
	// Tokens maps credentials to owners for the static strategy.
	Tokens map[string]string `json:"tokens,omitempty" yaml:"tokens,omitempty"`
	// SecretURL locates a credential to owner map for the secret strategy.
	SecretURL string `json:"secretURL,omitempty" yaml:"secretURL,omitempty"`
	// SecretKey decrypts SecretURL, e.g. blowfish://default.
	SecretKey string `json:"secretKey,omitempty" yaml:"secretKey,omitempty"`
}

// DefaultConfig returns the guest strategy.
func DefaultConfig() Config {
	return Config{Strategy: Guest, Owner: DefaultOwner}
}

// Validate checks that the configured strategy is registered.
func (c Config) Validate() error {
	if _, ok := lookup(c.Strategy); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, c.Strategy)
	}
	return nil
}

// Constructor builds a Provider for a strategy.
type Constructor func(ctx context.Context, config Config) (Provider, error)

var (
	registryMux sync.RWMutex
	registry    = map[string]Constructor{}
)

// Register makes a strategy available to New. It panics on a duplicate or nil constructor.
func Register(name string, constructor Constructor) {
	registryMux.Lock()
	defer registryMux.Unlock()
	if constructor == nil {
		panic("identity: Register constructor is nil")
	}
	if _, dup := registry[name]; dup {
		panic("identity: Register called twice for strategy " + name)
	}
	registry[name] = constructor
}

// Strategies returns the registered strategy names, sorted.
func Strategies() []string {
	registryMux.RLock()
	defer registryMux.RUnlock()
	ret := make([]string, 0, len(registry))
	for name := range registry {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// New builds the provider for config.Strategy; an empty strategy means guest.
func New(ctx context.Context, config Config) (Provider, error) {
	if config.Strategy == "" {
		config.Strategy = Guest
	}
	constructor, ok := lookup(config.Strategy)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, config.Strategy)
	}
	return constructor(ctx, config)
}

func lookup(name string) (Constructor, bool) {
	if name == "" {
		name = Guest
	}
	registryMux.RLock()
	defer registryMux.RUnlock()
	constructor, ok := registry[name]
	return constructor, ok
}
