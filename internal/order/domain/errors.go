package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrOutOfStock          = errors.New("out of stock")
	ErrItemNotFound        = errors.New("item not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrOrderNotFound       = errors.New("order not found")
	ErrShippingAddress     = errors.New("shipping address is required")
	ErrInvalidCartLine     = errors.New("invalid cart line")
)

type OutOfStockError struct {
	ItemID    int64
	ItemName  string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("item '%s' (id %d) is out of stock: requested %d, available %d",
		e.ItemName, e.ItemID, e.Requested, e.Available)
}

func (e *OutOfStockError) Unwrap() error { return ErrOutOfStock }

type InvalidCartLineError struct {
	ItemID int64
	Reason string
}

func (e *InvalidCartLineError) Error() string {
	return fmt.Sprintf("cart line for item %d: %s", e.ItemID, e.Reason)
}

func (e *InvalidCartLineError) Unwrap() error { return ErrInvalidCartLine }

type ItemNotFoundError struct {
	ItemID int64
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("inventory item %d not found", e.ItemID)
}

func (e *ItemNotFoundError) Unwrap() error { return ErrItemNotFound }

// UnavailableError reports a remote dependency that exhausted its retries
// or whose circuit is open. Cause is kept for logs only.
type UnavailableError struct {
	Remote string
	Op     string
	Cause  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Remote, e.Op, ErrUpstreamUnavailable, e.Cause)
}

func (e *UnavailableError) Unwrap() []error { return []error{ErrUpstreamUnavailable, e.Cause} }

type Kind int

const (
	KindInternal Kind = iota
	KindClientFault
	KindNotFound
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindClientFault:
		return "client_fault"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// KindOf classifies an error returned by the order application layer.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrOutOfStock), errors.Is(err, ErrShippingAddress),
		errors.Is(err, ErrInvalidCartLine):
		return KindClientFault
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrOrderNotFound):
		return KindNotFound
	case errors.Is(err, ErrUpstreamUnavailable):
		return KindUnavailable
	default:
		return KindInternal
	}
}
