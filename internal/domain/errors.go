package domain

import (
	"errors"
	"fmt"
)

// ErrorKind groups business failures so callers can react without parsing
// messages.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindNotAuthorized     ErrorKind = "not_authorized"
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindRateLimit         ErrorKind = "rate_limit"
	KindExpired           ErrorKind = "expired"
	KindContention        ErrorKind = "transaction_contention"
)

// Error is an expected business failure. Two errors match under errors.Is when
// their kinds are equal and the target either has no code or the same code.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// Withf returns a copy of e carrying a formatted message.
func (e *Error) Withf(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrValidation        = &Error{Kind: KindValidation, Message: "invalid request"}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Message: "insufficient funds"}
	ErrNotAuthorized     = &Error{Kind: KindNotAuthorized, Message: "not authorized"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}
	ErrRateLimited       = &Error{Kind: KindRateLimit, Message: "rate limit exceeded"}
	ErrExpired           = &Error{Kind: KindExpired, Message: "expired"}
	ErrContention        = &Error{Kind: KindContention, Message: "transaction contention, retries exhausted"}

	ErrInvalidAmount   = &Error{Kind: KindValidation, Code: "invalid_amount", Message: "amount must be positive"}
	ErrBidTooLow       = &Error{Kind: KindValidation, Code: "bid_too_low", Message: "bid too low"}
	ErrAuctionNotOpen  = &Error{Kind: KindConflict, Code: "auction_not_open", Message: "auction is not active"}
	ErrAuctionHasBids  = &Error{Kind: KindConflict, Code: "auction_has_bids", Message: "auction already has bids"}
	ErrLandAuctioned   = &Error{Kind: KindConflict, Code: "land_auctioned", Message: "land is currently auctioned"}
	ErrLandOverlap     = &Error{Kind: KindConflict, Code: "land_overlap", Message: "land overlaps another parcel"}
	ErrDuplicateOffer  = &Error{Kind: KindConflict, Code: "duplicate_offer", Message: "a pending offer already exists for this land"}
	ErrOfferNotPending = &Error{Kind: KindConflict, Code: "offer_not_pending", Message: "offer is no longer pending"}
	ErrLockNotHeld     = &Error{Kind: KindConflict, Code: "lock_not_held", Message: "funds are not locked"}
	ErrOfferCooldown   = &Error{Kind: KindRateLimit, Code: "offer_cooldown", Message: "offer recently rejected, try again later"}
	ErrOfferDailyCap   = &Error{Kind: KindRateLimit, Code: "offer_daily_cap", Message: "daily offer limit reached"}
)

// KindOf returns the kind of a business error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
