package bizerror

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidPassword = errors.New("invalid password")
	ErrNotFound        = errors.New("not found")

	ErrInvalidState       = errors.New("request is not in the expected state")
	ErrNoStepsConfigured  = errors.New("workflow has no steps configured")
	ErrNoActiveStep       = errors.New("request has no active step")
	ErrDuplicatedApproval = errors.New("actor has already approved current step")

	ErrWorkflowIsReferenced = errors.New("workflow is referenced by approval requests")
	ErrWorkflowInactive     = errors.New("workflow is not active")
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}
func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}
func (e *ErrBadParam) Respond() *BizErrorDetail {
	message := "common.bad_param"
	if e.Cause != nil {
		message = e.Cause.Error()
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: message, Data: nil}
}
