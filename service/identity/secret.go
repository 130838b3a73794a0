package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/scy"
	"github.com/viant/toolbox"
)

const Secret = "secret"

// loadTokens reads a credential to owner map from a scy secret resource.
func loadTokens(ctx context.Context, service *scy.Service, URL, key string) (map[string]string, error) {
	secret, err := service.Load(ctx, scy.NewResource(nil, URL, key))
	if err != nil {
		return nil, fmt.Errorf("failed to load identity secret %s: %w", URL, err)
	}
	ret := map[string]string{}
	if !secret.IsPlain && secret.Target != nil {
		if err = toolbox.DefaultConverter.AssignConverted(&ret, secret.Target); err != nil {
			return nil, fmt.Errorf("failed to convert identity secret %s: %w", URL, err)
		}
		return ret, nil
	}
	if err = json.Unmarshal([]byte(secret.String()), &ret); err != nil {
		return nil, fmt.Errorf("failed to decode identity secret %s: %w", URL, err)
	}
	return ret, nil
}

func init() {
	Register(Secret, func(ctx context.Context, config Config) (Provider, error) {
		if config.SecretURL == "" {
			return nil, fmt.Errorf("identity %s: secretURL was empty", Secret)
		}
		loaded, err := loadTokens(ctx, scy.New(), config.SecretURL, config.SecretKey)
		if err != nil {
			return nil, err
		}
		if len(loaded) == 0 {
			return nil, fmt.Errorf("identity %s: %s holds no tokens", Secret, config.SecretURL)
		}
		return newTokens(loaded), nil
	})
}
