package joblauncher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/c360studio/corevalid-adapter/launcher"
	"github.com/c360studio/semstreams/message"
)

// streamPublisher is the subset of natsclient.Client the runner needs.
type streamPublisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// natsRunner dispatches run requests as BaseMessages on JetStream.
type natsRunner struct {
	publisher streamPublisher
	subject   string
}

// Run publishes req. Dispatch is never retried here.
func (r *natsRunner) Run(ctx context.Context, req *launcher.LaunchRequest) error {
	if r.publisher == nil {
		return fmt.Errorf("NATS client required")
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid run request: %w", err)
	}

	baseMsg := message.NewBaseMessage(req.Schema(), req, componentName)
	data, err := json.Marshal(baseMsg)
	if err != nil {
		return fmt.Errorf("marshal run request: %w", err)
	}

	if err := r.publisher.PublishToStream(ctx, r.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", r.subject, err)
	}
	return nil
}
