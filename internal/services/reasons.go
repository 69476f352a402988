package services

// Reason tags an expected business outcome of the eligibility and scan flows.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonUserNotFound      Reason = "user_not_found"
	ReasonUserInactive      Reason = "user_inactive"
	ReasonUserNotApproved   Reason = "user_not_approved"
	ReasonOutsideMealWindow Reason = "outside_meal_window"
	ReasonAlreadyTaken      Reason = "already_taken"
	ReasonQuotaExhausted    Reason = "quota_exhausted"
	ReasonTokenExpired      Reason = "token_expired"
	ReasonTokenTampered     Reason = "token_tampered"
	ReasonTokenMalformed    Reason = "token_malformed"
	ReasonRateLimited       Reason = "rate_limited"
	ReasonDeviceMismatch    Reason = "device_mismatch"
)

// AllReasons lists every reason a client can receive.
var AllReasons = []Reason{
	ReasonUserNotFound,
	ReasonUserInactive,
	ReasonUserNotApproved,
	ReasonOutsideMealWindow,
	ReasonAlreadyTaken,
	ReasonQuotaExhausted,
	ReasonTokenExpired,
	ReasonTokenTampered,
	ReasonTokenMalformed,
	ReasonRateLimited,
	ReasonDeviceMismatch,
}

func (reason Reason) String() string {
	return string(reason)
}
