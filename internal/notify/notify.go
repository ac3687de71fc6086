// Package notify carries user-facing failure messages out of the cart store.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ErrorKind string

const (
	NetworkFailure ErrorKind = "network_failure"
	OutOfStock     ErrorKind = "out_of_stock"
	AddFailure     ErrorKind = "add_failure"
	RemoveFailure  ErrorKind = "remove_failure"
	UpdateFailure  ErrorKind = "update_failure"
)

type Notification struct {
	ID        string    `json:"id"`
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	ProductID int64     `json:"product_id"`
	At        time.Time `json:"at"`
}

func New(kind ErrorKind, productID int64, message string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		ProductID: productID,
		At:        time.Now().UTC(),
	}
}

// Notifier must not block the caller for long and never reports failure back.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Multi fans a notification out in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(ctx, n)
		}
	}
}

type Nop struct{}

func (Nop) Notify(context.Context, Notification) {}
