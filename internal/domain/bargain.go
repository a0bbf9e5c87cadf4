package domain

import "github.com/MrAk1876/carRent-sub002/internal/apperr"

type BargainStatus string

const (
	BargainStatusNone           BargainStatus = "NONE"
	BargainStatusUserOffered    BargainStatus = "USER_OFFERED"
	BargainStatusAdminCountered BargainStatus = "ADMIN_COUNTERED"
	BargainStatusAccepted       BargainStatus = "ACCEPTED"
	BargainStatusRejected       BargainStatus = "REJECTED"
	BargainStatusLocked         BargainStatus = "LOCKED"
)

type BargainAction string

const (
	BargainActionOffer   BargainAction = "offer"
	BargainActionCounter BargainAction = "counter"
	BargainActionAccept  BargainAction = "accept"
	BargainActionReject  BargainAction = "reject"
)

// Bargain is the negotiation record embedded in a request or booking.
type Bargain struct {
	UserPrice         float64       `json:"user_price"`
	AdminCounterPrice float64       `json:"admin_counter_price"`
	Status            BargainStatus `json:"status"`
}

// Offer records the customer's asking price. Allowed from NONE or while the
// negotiation is still open (re-offer after an admin counter).
func (b *Bargain) Offer(price float64) error {
	if b.Status == BargainStatusLocked {
		return apperr.BargainLocked()
	}
	if price <= 0 {
		return apperr.InvalidBargainAction("offer price must be positive")
	}
	switch b.Status {
	case BargainStatusNone, BargainStatusUserOffered, BargainStatusAdminCountered:
		b.UserPrice = price
		b.Status = BargainStatusUserOffered
		return nil
	default:
		return apperr.InvalidBargainAction("bargain negotiation is already closed")
	}
}

// Counter records an admin counter-offer against a user offer.
func (b *Bargain) Counter(price float64) error {
	if b.Status == BargainStatusLocked {
		return apperr.BargainLocked()
	}
	if price <= 0 {
		return apperr.InvalidBargainAction("counter price must be positive")
	}
	switch b.Status {
	case BargainStatusUserOffered, BargainStatusAdminCountered:
		b.AdminCounterPrice = price
		b.Status = BargainStatusAdminCountered
		return nil
	default:
		return apperr.InvalidBargainAction("no open offer to counter")
	}
}

// Accept closes the negotiation at the price standing before the accept:
// the user offer when the admin accepts, the counter when the customer
// does. The caller copies that price into the owning entity's final amount
// and recomputes the advance breakdown.
func (b *Bargain) Accept() error {
	if b.Status == BargainStatusLocked {
		return apperr.BargainLocked()
	}
	switch b.Status {
	case BargainStatusUserOffered, BargainStatusAdminCountered:
		b.Status = BargainStatusAccepted
		return nil
	default:
		return apperr.InvalidBargainAction("no open offer to accept")
	}
}

// Reject closes the negotiation without a price change.
func (b *Bargain) Reject() error {
	if b.Status == BargainStatusLocked {
		return apperr.BargainLocked()
	}
	switch b.Status {
	case BargainStatusUserOffered, BargainStatusAdminCountered:
		b.Status = BargainStatusRejected
		return nil
	default:
		return apperr.InvalidBargainAction("no open offer to reject")
	}
}

// Lock freezes the bargain at booking-creation time. Only reachable from a
// non-NONE, non-REJECTED state; once locked no further mutation is permitted.
func (b *Bargain) Lock() error {
	switch b.Status {
	case BargainStatusLocked:
		return apperr.BargainLocked()
	case BargainStatusNone, BargainStatusRejected:
		return apperr.InvalidBargainAction("bargain cannot be locked from its current state")
	default:
		b.Status = BargainStatusLocked
		return nil
	}
}
