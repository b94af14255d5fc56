package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/flash-sale-service/gateway"
	"github.com/yashrajoria/flash-sale-service/services"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message, nil) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message, nil) }
func Forbidden(message string) *Error    { return New(http.StatusForbidden, message, nil) }

// FromError maps service and gateway errors to an HTTP error. Unknown
// errors become a 500 without leaking their text.
func FromError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var notSuccessful *services.PaymentNotSuccessfulError
	if errors.As(err, &notSuccessful) {
		return New(http.StatusBadRequest, notSuccessful.Error(), err)
	}

	var gwErr *gateway.GatewayError
	if errors.As(err, &gwErr) {
		msg := "Payment provider unavailable"
		if gwErr.Timeout() {
			msg = "Payment provider timed out"
		}
		return New(http.StatusBadGateway, msg, err)
	}

	switch {
	case errors.Is(err, services.ErrProductNotFound):
		return New(http.StatusNotFound, "Product not found", err)
	case errors.Is(err, services.ErrPaymentNotFound):
		return New(http.StatusNotFound, "Payment not found", err)
	case errors.Is(err, services.ErrSaleNotActive):
		return New(http.StatusBadRequest, "Sale is not active", err)
	case errors.Is(err, services.ErrInsufficientStock):
		return New(http.StatusBadRequest, "Stock unavailable", err)
	case errors.Is(err, services.ErrInvalidQuantity):
		return New(http.StatusBadRequest, "Quantity must be greater than zero", err)
	case errors.Is(err, services.ErrInvalidProduct):
		return New(http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, services.ErrInvalidCredentials):
		return New(http.StatusBadRequest, "Invalid email or password", err)
	case errors.Is(err, services.ErrEmailTaken):
		return New(http.StatusConflict, "Email already exists", err)
	}
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// Respond writes err in the failure envelope.
func Respond(c *gin.Context, err error) {
	appErr := FromError(err)
	c.AbortWithStatusJSON(appErr.Code, gin.H{
		"success": false,
		"error":   gin.H{"message": appErr.Message},
	})
}

// ErrorMiddleware renders the last error attached with c.Error when the
// handler did not write a response itself.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Respond(c, c.Errors.Last().Err)
		}
	}
}
