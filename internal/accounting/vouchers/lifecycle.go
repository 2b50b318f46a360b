package vouchers

import "github.com/farmbooks/farmbooks/internal/accounting/shared"

// ParseStatus accepts lifecycle names in any case.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(upper(raw)); s {
	case StatusDraft, StatusPosted, StatusVoid:
		return s, true
	}
	return "", false
}

// CheckTransition validates a status change. Posted is terminal: it can be
// neither unposted nor voided, and Void accepts no further changes.
func CheckTransition(from, to Status) error {
	switch {
	case from == StatusDraft && (to == StatusDraft || to == StatusPosted || to == StatusVoid):
		return nil
	case from == StatusPosted && to == StatusDraft:
		return shared.ErrCannotUnpost
	default:
		return shared.Wrap(shared.ErrInvalidTransition, "%s -> %s", from, to)
	}
}

// CheckDelete refuses deletion of posted vouchers.
func CheckDelete(status Status) error {
	if status == StatusPosted {
		return shared.ErrCannotDeletePosted
	}
	return nil
}

// CheckEdit allows payload edits on drafts only.
func CheckEdit(status Status) error {
	if status != StatusDraft {
		return shared.Wrap(shared.ErrInvalidTransition, "%s voucher cannot be edited", status)
	}
	return nil
}
