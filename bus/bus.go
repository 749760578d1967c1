// Package bus defines the outbound message-bus contract. The engine
// publishes exactly one job-command message per successful firing; the
// transport behind the contract (the platform's message broker) is an
// external collaborator. The in-process [Broker] implements the contract
// for single-node and test deployments.
package bus

import "context"

// TopicJobCommands is the well-known topic job commands are published to.
const TopicJobCommands = "data-export.job.commands"

// Message is one message published to the bus.
type Message struct {
	// Topic is the destination topic.
	Topic string

	// Key is the partitioning key; the engine uses the tenant so all of
	// one tenant's commands stay ordered.
	Key string

	// Codec names the serialization format of Body.
	Codec string

	// Body is the serialized job command.
	Body []byte
}

// Publisher publishes messages to the bus. Implementations own their
// timeout and retry behavior; a publish failure fails that single firing
// only and the schedule attempts again at its next natural occurrence.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}
