package types

import "github.com/KevinKickass/HomeGateway/internal/helios"

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds a consistent API error payload.
// details can be string, map, struct, etc.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// StatusDetails is the error detail of a failed device exchange.
type StatusDetails struct {
	Parameter  string `json:"parameter"`
	Status     string `json:"status"`
	StatusCode uint32 `json:"status_code"`
}

// NewStatusErrorResponse reports a Bad status of a parameter exchange.
func NewStatusErrorResponse(parameter string, st helios.Status) ErrorResponse {
	return NewErrorResponse(st.String(), "device exchange failed", StatusDetails{
		Parameter:  parameter,
		Status:     st.String(),
		StatusCode: uint32(st),
	})
}
