// Package delivery defines the contract shared by all inbound transports.
package delivery

import "context"

// Delivery is a transport that accepts requests until its context ends or
// the fx lifecycle stops it.
type Delivery interface {
	Serve(ctx context.Context) error
}
