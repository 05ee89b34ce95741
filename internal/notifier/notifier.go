// Package notifier publishes the terminal FileProcessedNotification
// for one event.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/littleandi/filehorizon/internal/domain"
)

// Publisher is the narrow transport notifier depends on; bussink's
// Redis/AMQP transports satisfy it directly.
type Publisher interface {
	Publish(ctx context.Context, destination string, isTopic bool, payload []byte) error
}

// Notifier publishes notifications to one configured destination.
type Notifier struct {
	publisher   Publisher
	destination string
	isTopic     bool
}

func New(publisher Publisher, destination string, isTopic bool) *Notifier {
	return &Notifier{publisher: publisher, destination: destination, isTopic: isTopic}
}

func (n *Notifier) Notify(ctx context.Context, notification *domain.FileProcessedNotification) error {
	if n.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("notifier: marshal notification: %w", err)
	}
	if err := n.publisher.Publish(ctx, n.destination, n.isTopic, payload); err != nil {
		return fmt.Errorf("notifier: publish: %w", err)
	}
	return nil
}
