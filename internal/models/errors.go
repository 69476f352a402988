package models

import "errors"

// Storage outcomes that callers branch on.
var (
	ErrMealAlreadyRecorded = errors.New("meal already recorded for this date")
	ErrMealQuotaExhausted  = errors.New("monthly meal quota exhausted")
	ErrFingerprintBound    = errors.New("fingerprint is bound to another user")
)
