package joblauncher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360studio/corevalid-adapter/task"
	"github.com/nats-io/nats.go/jetstream"
)

// handleTaskUpdates consumes task snapshots from the task stream and hands
// each to the automatic launcher. The loop is sequential, so automatic
// launches never overlap within one process.
func (c *Component) handleTaskUpdates(ctx context.Context, js jetstream.JetStream) {
	c.consume(ctx, js, "task update", c.config.ConsumerName, c.config.TaskSubject, func(ctx context.Context, data []byte) {
		c.handleUpdate(ctx, data)
	})
}

// handleManualRuns consumes manual run requests published by the task
// manager. Unlike POST /start these carry the snapshot and skip the
// in-flight check.
func (c *Component) handleManualRuns(ctx context.Context, js jetstream.JetStream) {
	c.consume(ctx, js, "manual run", c.config.ManualConsumerName, c.config.ManualRunSubject, func(ctx context.Context, data []byte) {
		if err := c.handleManualRun(ctx, data); err != nil {
			c.logger.Error("Manual run request failed", "error", err)
		}
	})
}

// consume runs a durable fetch loop on subject until ctx is done. Every
// message is acked after handle returns: a snapshot that cannot be launched
// now will not become launchable on redelivery.
func (c *Component) consume(ctx context.Context, js jetstream.JetStream, kind, consumerName, subject string, handle func(context.Context, []byte)) {
	stream, err := js.Stream(ctx, c.config.TaskStreamName)
	if err != nil {
		c.logger.Error("Failed to get task stream, "+kind+" consumer disabled",
			"stream", c.config.TaskStreamName,
			"error", err)
		return
	}

	// Durable so messages published while the adapter restarts are not lost.
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		c.logger.Error("Failed to create "+kind+" consumer",
			"consumer", consumerName,
			"error", err)
		return
	}

	c.logger.Info("Subscriber started",
		"kind", kind,
		"stream", c.config.TaskStreamName,
		"subject", subject)

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Subscriber stopping", "kind", kind)
			return
		default:
		}

		// Short fetch window so ctx.Done is checked regularly
		msgs, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		for msg := range msgs.Messages() {
			c.processMessage(ctx, msg, kind, handle)
		}
	}
}

func (c *Component) processMessage(ctx context.Context, msg jetstream.Msg, kind string, handle func(context.Context, []byte)) {
	defer func() {
		if err := msg.Ack(); err != nil {
			c.logger.Warn("Failed to ACK "+kind, "error", err)
		}
	}()

	handle(ctx, msg.Data())
}

// handleManualRun decodes a snapshot and launches it as a manual run with
// no parameters. Panics are recovered and returned as errors.
func (c *Component) handleManualRun(ctx context.Context, data []byte) (err error) {
	c.updatesReceived.Add(1)
	c.touch()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing manual run: %v", r)
		}
		if err != nil {
			c.updateErrors.Add(1)
		}
	}()

	snap, err := decodeSnapshot(data)
	if err != nil {
		return err
	}

	return c.adapter.HandleManual(ctx, snap, nil)
}

// handleUpdate decodes a snapshot and launches it. It reports whether a
// launch was dispatched and never panics.
func (c *Component) handleUpdate(ctx context.Context, data []byte) (launched bool) {
	c.updatesReceived.Add(1)
	c.touch()

	defer func() {
		if r := recover(); r != nil {
			c.updateErrors.Add(1)
			c.logger.Error("Panic while processing task update", "panic", r)
			launched = false
		}
	}()

	snap, err := decodeSnapshot(data)
	if err != nil {
		c.updateErrors.Add(1)
		c.logger.Warn("Failed to parse task update", "error", err)
		return false
	}

	return c.auto.HandleUpdate(ctx, snap)
}

func decodeSnapshot(data []byte) (*task.Snapshot, error) {
	var snap task.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal task snapshot: %w", err)
	}
	return &snap, nil
}
