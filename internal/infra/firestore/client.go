// internal/infra/firestore/client.go
package firestoreinfra

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ClientWrapper holds the Firestore client and the project it is bound to.
type ClientWrapper struct {
	Client    *firestore.Client
	ProjectID string
}

// NewClient connects to projectID. An empty credentialsFile means ADC.
// FIRESTORE_EMULATOR_HOST is honoured by the SDK itself.
func NewClient(ctx context.Context, projectID, credentialsFile string, log *zap.Logger, opts ...option.ClientOption) (*ClientWrapper, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pid := strings.TrimSpace(projectID)
	if pid == "" {
		return nil, errors.New("firestore: projectID is empty")
	}
	if f := strings.TrimSpace(credentialsFile); f != "" {
		opts = append(opts, option.WithCredentialsFile(f))
	}

	client, err := firestore.NewClient(ctx, pid, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	if host := os.Getenv("FIRESTORE_EMULATOR_HOST"); host != "" {
		log.Info("[firestore] connected to emulator", zap.String("project", pid), zap.String("host", host))
	} else {
		log.Info("[firestore] connected", zap.String("project", pid))
	}
	return &ClientWrapper{Client: client, ProjectID: pid}, nil
}

// Ping lists root collections; Firestore has no dedicated health call.
func (cw *ClientWrapper) Ping(ctx context.Context) error {
	if cw == nil || cw.Client == nil {
		return fmt.Errorf("firestore client is nil")
	}
	if _, err := cw.Client.Collections(ctx).GetAll(); err != nil {
		return fmt.Errorf("firestore ping failed: %w", err)
	}
	return nil
}

func (cw *ClientWrapper) Close() error {
	if cw == nil || cw.Client == nil {
		return nil
	}
	return cw.Client.Close()
}
