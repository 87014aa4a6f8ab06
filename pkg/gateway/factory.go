package gateway

import (
	"context"
	"fmt"

	"github.com/TFMV/fabrica/pkg/core"
)

// Factory creates a gateway based on the configured backend. The backend is
// chosen once at startup, never re-checked per call.
type Factory struct {
	// registered gateways by backend name
	gateways map[string]Creator
}

// Creator is a function that creates a gateway from a configuration.
type Creator func(ctx context.Context, cfg core.GatewayConfig) (core.Gateway, error)

// NewFactory creates a new gateway factory.
func NewFactory() *Factory {
	return &Factory{
		gateways: make(map[string]Creator),
	}
}

// Register registers a creator for a backend name.
func (f *Factory) Register(backend string, creator Creator) {
	f.gateways[backend] = creator
}

// Create creates a gateway based on the given configuration.
func (f *Factory) Create(ctx context.Context, cfg core.GatewayConfig) (core.Gateway, error) {
	creator, ok := f.gateways[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
	return creator(ctx, cfg)
}

// DefaultFactory is the default gateway factory with built-in backends.
var DefaultFactory = NewFactory()

// init registers built-in backends.
func init() {
	DefaultFactory.Register("local", NewLocalGateway)
	DefaultFactory.Register("s3", NewS3Gateway)
}
