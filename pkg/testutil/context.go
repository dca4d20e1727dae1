package testutil

import (
	"net/http"

	id "roster/pkg/domain"
	"roster/pkg/requestcontext"
)

// WithOperator adds an operator identity and role to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If operatorID is not a valid UUID, the request is returned unchanged.
func WithOperator(req *http.Request, operatorID, role string) *http.Request {
	parsed, err := id.ParseOperatorID(operatorID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithOperator(req.Context(), parsed, role))
}
