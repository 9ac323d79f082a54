package ordering

import "fmt"

// OrderingError signals a failed business precondition during charge
// resolution, e.g. a renovation requested when nothing is due. The order is
// left in a consistent state before the error is surfaced.
type OrderingError struct {
	Message string
}

// Error implements the error interface
func (e *OrderingError) Error() string {
	return "OrderingError: " + e.Message
}

// NewOrderingError creates a new OrderingError
func NewOrderingError(msg string) *OrderingError {
	return &OrderingError{Message: msg}
}

// PaymentError signals a failure while interacting with the payment gateway
type PaymentError struct {
	Message string
}

// Error implements the error interface
func (e *PaymentError) Error() string {
	return "PaymentError: " + e.Message
}

// NewPaymentError creates a new PaymentError
func NewPaymentError(msg string) *PaymentError {
	return &PaymentError{Message: msg}
}

// InvalidChargeTypeError signals that a charge resolution was requested with
// an unknown concept. This is a caller error and is never retried.
type InvalidChargeTypeError struct {
	Concept ChargeConcept
}

// Error implements the error interface
func (e *InvalidChargeTypeError) Error() string {
	return fmt.Sprintf("invalid charge type %q, must be `initial`, `recurring`, or `usage`", string(e.Concept))
}

// NewInvalidChargeTypeError creates a new InvalidChargeTypeError
func NewInvalidChargeTypeError(concept ChargeConcept) *InvalidChargeTypeError {
	return &InvalidChargeTypeError{Concept: concept}
}
