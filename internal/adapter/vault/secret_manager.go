package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/vault/api"
)

var ErrSecretNotFound = errors.New("vault: secret not found")

// SecretManager reads the classifier API key from a Vault KV mount.
type SecretManager struct {
	client *api.Client
	path   string
	field  string
}

func NewSecretManager(address, token, path, field string) (*SecretManager, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("vault: new client: %w", err)
	}

	client.SetToken(token)

	return &SecretManager{client: client, path: path, field: field}, nil
}

// FetchCredential reads the configured field. KV v2 responses nest the values
// under "data"; KV v1 responses do not.
func (sm *SecretManager) FetchCredential(ctx context.Context) (string, error) {
	secret, err := sm.client.Logical().ReadWithContext(ctx, sm.path)
	if err != nil {
		return "", fmt.Errorf("vault: read %s: %w", sm.path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, sm.path)
	}

	data := secret.Data
	if nested, ok := secret.Data["data"].(map[string]interface{}); ok {
		data = nested
	}

	value, ok := data[sm.field].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: %s#%s", ErrSecretNotFound, sm.path, sm.field)
	}

	return strings.TrimSpace(value), nil
}
