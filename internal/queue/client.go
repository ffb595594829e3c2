package queue

import "context"

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Delivery is a received message awaiting acknowledgement.
type Delivery struct {
	ID            string
	Body          string
	ReceiptHandle string
}
