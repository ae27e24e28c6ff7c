package facade

import (
	"net/http"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
)

type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Response is the envelope every façade call returns. Status is the HTTP
// status a transport should use and is not serialised.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Status  int        `json:"-"`
}

func Success(data any) Response {
	return Response{Success: true, Data: data, Status: http.StatusOK}
}

func Created(data any) Response {
	return Response{Success: true, Data: data, Status: http.StatusCreated}
}

// Failure shapes err into a structured error. Errors outside the taxonomy
// are reported as storage failures.
func Failure(err error) Response {
	kind := appErrors.KindOf(err)
	return Response{
		Success: false,
		Error:   &ErrorBody{Error: string(kind), Message: err.Error()},
		Status:  appErrors.HTTPStatus(kind),
	}
}
