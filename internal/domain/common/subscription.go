package common

// Subscription is the handle of a live read. Close stops delivery, waits for
// any in-flight callback to return and is safe to call more than once.
type Subscription interface {
	Close() error
}

// SubscriptionFunc adapts a func to Subscription.
type SubscriptionFunc func() error

func (f SubscriptionFunc) Close() error { return f() }
