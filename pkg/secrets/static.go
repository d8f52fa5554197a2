// Package secrets provides secrets providers for template rendering and
// sandboxed connectors.
package secrets

import "context"

// Static serves secrets from an in-memory map keyed by organization.
// It backs single-binary deployments and tests; hosted deployments plug
// in an external vault behind the same interface.
type Static struct {
	byOrganization map[string]map[string]string
}

func NewStatic(byOrganization map[string]map[string]string) *Static {
	if byOrganization == nil {
		byOrganization = map[string]map[string]string{}
	}

	return &Static{byOrganization: byOrganization}
}

func (s *Static) Secrets(_ context.Context, organizationID string) (map[string]string, error) {
	secrets := make(map[string]string, len(s.byOrganization[organizationID]))
	for key, value := range s.byOrganization[organizationID] {
		secrets[key] = value
	}

	return secrets, nil
}
