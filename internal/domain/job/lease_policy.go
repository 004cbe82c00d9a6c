package job

import (
	"errors"
	"time"
)

// ErrInvalidDefaultLease indicates the configured default lease duration is not positive.
var ErrInvalidDefaultLease = errors.New("default lease must be positive")

// minHeartbeatInterval bounds how often a runner refreshes a lease.
const minHeartbeatInterval = time.Second

// LeasePolicy turns a runner's configured lease into reservation seconds and
// a heartbeat cadence.
type LeasePolicy struct {
	lease time.Duration
}

// NewLeasePolicy constructs a LeasePolicy with the provided lease duration.
func NewLeasePolicy(lease time.Duration) (*LeasePolicy, error) {
	if lease <= 0 {
		return nil, ErrInvalidDefaultLease
	}
	return &LeasePolicy{lease: lease}, nil
}

// Lease returns the configured lease duration.
func (p *LeasePolicy) Lease() time.Duration {
	if p == nil {
		return 0
	}
	return p.lease
}

// Seconds returns the lease as whole seconds, never less than one.
func (p *LeasePolicy) Seconds() int {
	if p == nil {
		return 1
	}
	return max(int(p.lease/time.Second), 1)
}

// HeartbeatInterval returns a third of the lease so two heartbeats can be
// missed before the lease lapses.
func (p *LeasePolicy) HeartbeatInterval() time.Duration {
	if p == nil {
		return minHeartbeatInterval
	}
	return max(p.lease/3, minHeartbeatInterval)
}
