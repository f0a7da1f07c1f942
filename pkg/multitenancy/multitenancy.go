// Package multitenancy scopes SDK operations to an organization. The org ID
// travels in the context; memories and vector stores use it to isolate data.
package multitenancy

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultOrgID is used by demos and single-tenant deployments.
const DefaultOrgID = "default"

type contextKey string

const orgIDKey contextKey = "org_id"

// ErrNoOrgID is returned when the context carries no organization ID.
var ErrNoOrgID = errors.New("no organization ID in context")

// WithOrgID returns a context scoped to the given organization.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgIDKey, orgID)
}

// GetOrgID returns the organization ID carried by the context.
func GetOrgID(ctx context.Context) (string, error) {
	orgID, ok := ctx.Value(orgIDKey).(string)
	if !ok || orgID == "" {
		return "", ErrNoOrgID
	}
	return orgID, nil
}

// OrgIDOrDefault returns the organization ID carried by the context, or
// DefaultOrgID when the context is not scoped to a tenant.
func OrgIDOrDefault(ctx context.Context) string {
	orgID, err := GetOrgID(ctx)
	if err != nil {
		return DefaultOrgID
	}
	return orgID
}

// TenantConfig holds per-organization settings.
type TenantConfig struct {
	OrgID string

	// LLMAPIKeys maps provider name ("openai", "anthropic") to API key.
	LLMAPIKeys map[string]string

	// Metadata holds arbitrary per-tenant settings.
	Metadata map[string]interface{}
}

// ConfigManager stores tenant configurations and resolves them from context.
type ConfigManager struct {
	mu      sync.RWMutex
	tenants map[string]*TenantConfig
}

// NewConfigManager creates an empty ConfigManager.
func NewConfigManager() *ConfigManager {
	return &ConfigManager{tenants: make(map[string]*TenantConfig)}
}

// RegisterTenant adds or replaces a tenant configuration.
func (m *ConfigManager) RegisterTenant(config *TenantConfig) error {
	if config == nil || config.OrgID == "" {
		return errors.New("tenant config requires an org ID")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[config.OrgID] = config
	return nil
}

// GetTenant returns the configuration for the org in the context.
func (m *ConfigManager) GetTenant(ctx context.Context) (*TenantConfig, error) {
	orgID, err := GetOrgID(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	tenant, ok := m.tenants[orgID]
	if !ok {
		return nil, fmt.Errorf("unknown tenant: %s", orgID)
	}
	return tenant, nil
}

// GetLLMAPIKey returns the API key for the given provider, resolved for the
// org in the context.
func (m *ConfigManager) GetLLMAPIKey(ctx context.Context, provider string) (string, error) {
	tenant, err := m.GetTenant(ctx)
	if err != nil {
		return "", err
	}
	key, ok := tenant.LLMAPIKeys[provider]
	if !ok {
		return "", fmt.Errorf("no API key for provider %s in tenant %s", provider, tenant.OrgID)
	}
	return key, nil
}
