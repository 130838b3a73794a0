package identity

import (
	"context"
	"fmt"
)

const Static = "static"

type tokens map[string]string

func (t tokens) Identify(_ context.Context, credential string) (string, error) {
	if credential == "" {
		return "", fmt.Errorf("%w: missing credential", ErrUnauthorized)
	}
	owner, ok := t[credential]
	if !ok || owner == "" {
		return "", ErrUnauthorized
	}
	return owner, nil
}

func newTokens(source map[string]string) tokens {
	ret := make(tokens, len(source))
	for credential, owner := range source {
		ret[credential] = owner
	}
	return ret
}

func init() {
	Register(Static, func(_ context.Context, config Config) (Provider, error) {
		if len(config.Tokens) == 0 {
			return nil, fmt.Errorf("identity %s: tokens were empty", Static)
		}
		return newTokens(config.Tokens), nil
	})
}
