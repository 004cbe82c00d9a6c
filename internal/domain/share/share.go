// Package share implements the record sharing state machine.
//
//	Private ──Initiate(owner)──▶ PendingShare{to,by}
//	PendingShare ──Respond(to, accept)──▶ Shared{to,by}
//	PendingShare ──Respond(to, reject)──▶ Rejected{to,by}
//	Shared | Rejected ──Initiate(owner | Shared.to)──▶ PendingShare
//
// Functions here are pure; persistence applies the result with a
// compare-and-swap on the previous state.
package share

import (
	"errors"
	"strings"

	"github.com/UPI05/InsecMed/internal/domain/model"
)

var (
	// ErrPermissionDenied is returned when the caller may not perform the transition.
	ErrPermissionDenied = errors.New("share: permission denied")
	// ErrSelfShare is returned when the recipient equals the caller.
	ErrSelfShare = errors.New("share: cannot share a record with yourself")
	// ErrRecipientRequired is returned when no recipient is given.
	ErrRecipientRequired = errors.New("share: recipient is required")
)

// NormalizeIdentity lower-cases and trims an identity so comparisons are stable.
func NormalizeIdentity(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// CanInitiate reports whether caller may offer the record to someone new.
func CanInitiate(owner string, current model.ShareState, caller string) bool {
	caller = NormalizeIdentity(caller)
	if caller == "" {
		return false
	}
	if caller == NormalizeIdentity(owner) {
		return true
	}
	return current.Status == model.ShareStatusShared && NormalizeIdentity(current.To) == caller
}

// Initiate moves a record into PendingShare{to, by: caller}.
func Initiate(owner string, current model.ShareState, caller, to string) (model.ShareState, error) {
	to = NormalizeIdentity(to)
	caller = NormalizeIdentity(caller)
	if to == "" {
		return current, ErrRecipientRequired
	}
	if !CanInitiate(owner, current, caller) {
		return current, ErrPermissionDenied
	}
	if to == caller {
		return current, ErrSelfShare
	}
	return model.PendingShare(to, caller), nil
}

// Respond lets the named recipient of a pending share accept or reject it.
func Respond(current model.ShareState, caller string, accept bool) (model.ShareState, error) {
	caller = NormalizeIdentity(caller)
	if current.Status != model.ShareStatusPending || caller == "" || NormalizeIdentity(current.To) != caller {
		return current, ErrPermissionDenied
	}
	if accept {
		return model.Shared(current.To, current.By), nil
	}
	return model.Rejected(current.To, current.By), nil
}

// Visible reports whether identity may read a record owned by owner.
// The recipient sees it while pending or shared, and loses it once rejected.
func Visible(owner string, current model.ShareState, identity string) bool {
	identity = NormalizeIdentity(identity)
	if identity == "" {
		return false
	}
	if identity == NormalizeIdentity(owner) {
		return true
	}
	return current.VisibleTo(identity)
}

// IsNotification reports whether the record belongs to identity's pending list.
func IsNotification(current model.ShareState, identity string) bool {
	identity = NormalizeIdentity(identity)
	return identity != "" && current.Status == model.ShareStatusPending && current.To == identity
}
