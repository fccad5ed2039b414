package handlers

// Error codes carried in ErrorResponse.Code. Clients branch on these, not on
// messages. invalid_state and conflict responses on calls also carry the
// call's current state:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_state",
//	  "message": "invalid state: call 6f1c... is ended",
//	  "state": {"call_id": "6f1c...", "status": "ended"}
//	}
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"     // busy participant, duplicate
	ErrCodeInvalidState     = "invalid_state" // lost call or collaboration transition
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeUnavailable      = "unavailable" // transient storage failure, retry
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
