package model

// ShareStatus is the tag of a ShareState.
type ShareStatus string

const (
	// ShareStatusPrivate means the record is visible to its owner only.
	ShareStatusPrivate ShareStatus = "private"
	// ShareStatusPending means a share was offered and awaits a response.
	ShareStatusPending ShareStatus = "pending"
	// ShareStatusShared means the recipient accepted the share.
	ShareStatusShared ShareStatus = "shared"
	// ShareStatusRejected means the recipient declined the share.
	ShareStatusRejected ShareStatus = "rejected"
)

// accept_share column encoding.
const (
	acceptSharePending  = 0
	acceptShareAccepted = 1
	acceptShareRejected = -1
)

// ShareState is the visibility state of a record. To and By are empty when Private.
type ShareState struct {
	Status ShareStatus `json:"status"`
	To     string      `json:"to,omitempty"`
	By     string      `json:"by,omitempty"`
}

// Private returns the initial share state.
func Private() ShareState { return ShareState{Status: ShareStatusPrivate} }

// PendingShare returns an offered share.
func PendingShare(to, by string) ShareState {
	return ShareState{Status: ShareStatusPending, To: to, By: by}
}

// Shared returns an accepted share.
func Shared(to, by string) ShareState {
	return ShareState{Status: ShareStatusShared, To: to, By: by}
}

// Rejected returns a declined share.
func Rejected(to, by string) ShareState {
	return ShareState{Status: ShareStatusRejected, To: to, By: by}
}

// IsPrivate reports whether no share was ever offered.
func (s ShareState) IsPrivate() bool { return s.Status == "" || s.Status == ShareStatusPrivate }

// VisibleTo reports whether identity is the recipient of a live share.
func (s ShareState) VisibleTo(identity string) bool {
	if identity == "" || s.To != identity {
		return false
	}
	return s.Status == ShareStatusPending || s.Status == ShareStatusShared
}

// Columns encodes the state onto the accept_share, share_to and sharer columns.
func (s ShareState) Columns() (acceptShare *int, shareTo, sharer *string) {
	var v int
	switch s.Status {
	case ShareStatusPending:
		v = acceptSharePending
	case ShareStatusShared:
		v = acceptShareAccepted
	case ShareStatusRejected:
		v = acceptShareRejected
	default:
		return nil, nil, nil
	}
	to, by := s.To, s.By
	return &v, &to, &by
}

// ShareStateFromColumns decodes the colocated share columns. An unknown
// accept_share value decodes as Private.
func ShareStateFromColumns(acceptShare *int, shareTo, sharer *string) ShareState {
	if acceptShare == nil {
		return Private()
	}
	var to, by string
	if shareTo != nil {
		to = *shareTo
	}
	if sharer != nil {
		by = *sharer
	}
	switch *acceptShare {
	case acceptSharePending:
		return PendingShare(to, by)
	case acceptShareAccepted:
		return Shared(to, by)
	case acceptShareRejected:
		return Rejected(to, by)
	default:
		return Private()
	}
}
