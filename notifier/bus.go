package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn the bus channel needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// BusEvent is the message published for every shown notification.
type BusEvent struct {
	Namespace    string        `json:"namespace"`
	Notification *Notification `json:"notification"`
}

// BusChannel publishes shown notifications to a NATS subject
// "<subject>.<namespace>" for other services to pick up.
type BusChannel struct {
	pub       Publisher
	subject   string
	namespace string
}

// NewBusChannel publishes through pub under subject.
func NewBusChannel(pub Publisher, subject string) *BusChannel {
	if subject == "" {
		subject = "jaat.notifications"
	}
	return &BusChannel{pub: pub, subject: subject}
}

// ConnectBus dials NATS at url. The returned func drains the connection.
func ConnectBus(url, subject string) (*BusChannel, func(), error) {
	nc, err := nats.Connect(url, nats.Name("jaat-notifier"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewBusChannel(nc, subject), func() { _ = nc.Drain() }, nil
}

// For binds the channel to a namespace.
func (b *BusChannel) For(namespace string) *BusChannel {
	return &BusChannel{pub: b.pub, subject: b.subject, namespace: namespace}
}

// Subject is the full subject this channel publishes to.
func (b *BusChannel) Subject() string {
	if b.namespace == "" {
		return b.subject
	}
	return b.subject + "." + b.namespace
}

func (b *BusChannel) Name() string { return "bus" }

func (b *BusChannel) Deliver(_ context.Context, n *Notification) error {
	data, err := json.Marshal(BusEvent{Namespace: b.namespace, Notification: n})
	if err != nil {
		return err
	}
	return b.pub.Publish(b.Subject(), data)
}

var _ Channel = (*BusChannel)(nil)
