package identity

import "context"

const (
	Guest = "guest"
	// DefaultOwner is used by the guest strategy when no owner is configured.
	DefaultOwner = "guest"
)

type guest struct {
	owner string
}

// Identify ignores the credential.
func (g *guest) Identify(context.Context, string) (string, error) {
	return g.owner, nil
}

func init() {
	Register(Guest, func(_ context.Context, config Config) (Provider, error) {
		owner := config.Owner
		if owner == "" {
			owner = DefaultOwner
		}
		return &guest{owner: owner}, nil
	})
}
