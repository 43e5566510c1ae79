// Package connectivity reports device reachability and notifies observers on
// genuine transitions.
package connectivity

import "context"

// Status is the current reachability picture. The sync engine only treats
// the device as online when both flags hold.
type Status struct {
	Connected         bool
	InternetReachable bool
}

// Online reports whether remote calls are worth attempting.
func (s Status) Online() bool {
	return s.Connected && s.InternetReachable
}

// Oracle exposes current reachability and transition notifications.
// Subscribe returns an unsubscribe function; callbacks fire at least once per
// genuine transition between reachable and unreachable.
type Oracle interface {
	Status(ctx context.Context) Status
	Subscribe(fn func(Status)) (unsubscribe func())
}
