// internal/infra/secrets/resolver.go
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// RefPrefix marks a config value as a Secret Manager reference:
// "sm://<secret-id>" or "sm://<secret-id>#<version>".
const RefPrefix = "sm://"

var ErrNotConfigured = errors.New("secrets: secret manager not configured")

type accessFunc func(ctx context.Context, name string) ([]byte, error)

// Resolver turns sm:// references into secret payloads. Plain values pass through.
type Resolver struct {
	projectID string
	access    accessFunc
}

// NewResolver uses client; a nil client yields a resolver that only passes plain values.
func NewResolver(client *secretmanager.Client, projectID string) *Resolver {
	r := &Resolver{projectID: strings.TrimSpace(projectID)}
	if client != nil {
		r.access = func(ctx context.Context, name string) ([]byte, error) {
			resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
			if err != nil {
				return nil, err
			}
			if resp == nil || resp.Payload == nil {
				return nil, fmt.Errorf("secrets: empty payload (%s)", name)
			}
			return resp.Payload.Data, nil
		}
	}
	return r
}

// IsRef reports whether v names a secret instead of holding one.
func IsRef(v string) bool {
	return strings.HasPrefix(strings.TrimSpace(v), RefPrefix)
}

// Resolve returns v itself, or the payload of the referenced secret version.
func (r *Resolver) Resolve(ctx context.Context, v string) (string, error) {
	v = strings.TrimSpace(v)
	if !IsRef(v) {
		return v, nil
	}
	if r == nil || r.access == nil {
		return "", ErrNotConfigured
	}
	name, err := r.versionName(strings.TrimPrefix(v, RefPrefix))
	if err != nil {
		return "", err
	}
	data, err := r.access(ctx, name)
	if err != nil {
		return "", fmt.Errorf("secrets: AccessSecretVersion failed (%s): %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ResolveAll resolves each pointer in place and stops at the first failure.
func (r *Resolver) ResolveAll(ctx context.Context, values ...*string) error {
	for _, p := range values {
		if p == nil {
			continue
		}
		out, err := r.Resolve(ctx, *p)
		if err != nil {
			return err
		}
		*p = out
	}
	return nil
}

func (r *Resolver) versionName(ref string) (string, error) {
	id, ver, _ := strings.Cut(ref, "#")
	id = strings.TrimSpace(id)
	ver = strings.TrimSpace(ver)
	if id == "" {
		return "", errors.New("secrets: secret id is empty")
	}
	if ver == "" {
		ver = "latest"
	}
	if strings.HasPrefix(id, "projects/") {
		return id + "/versions/" + ver, nil
	}
	if r.projectID == "" {
		return "", errors.New("secrets: projectID is empty")
	}
	return "projects/" + r.projectID + "/secrets/" + id + "/versions/" + ver, nil
}
