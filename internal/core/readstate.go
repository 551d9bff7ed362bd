package core

import "github.com/seamlabs/weave/internal/types"

// DeriveReadStatus computes the aggregate read state of a message from its
// receipts. Never stored; derived at view time.
//
//   - sent: no receipts at all
//   - delivered: at least one non-author receipt
//   - read: the author has observed the non-author receipts
//
// authorSaw is whether the viewing session (as the author) has rendered the
// receipt set; a non-author viewer never sees "read", only the delivery
// progression of their own copy.
func DeriveReadStatus(msg *types.Message, receipts []types.ReadReceipt, authorSaw bool) types.ReadStatus {
	delivered := false
	for _, r := range receipts {
		if r.MessageID != msg.ID {
			continue
		}
		if r.ReaderID != msg.AuthorID {
			delivered = true
			break
		}
	}
	if !delivered {
		return types.ReadStatusSent
	}
	if authorSaw {
		return types.ReadStatusRead
	}
	return types.ReadStatusDelivered
}
