package errors

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// OrderValidationError is returned when an incoming order is malformed
	// or references an unknown asset. The order is rejected before any
	// state change.
	OrderValidationError ErrorCode = "order_validation_error"
	// OrderNotFoundError is returned when an operation references an
	// unknown order id.
	OrderNotFoundError ErrorCode = "order_not_found"
	// OrderInvalidStateError is returned when the operation is not legal
	// for the order's current state, e.g. cancelling a filled order.
	OrderInvalidStateError ErrorCode = "order_invalid_state"
	// BookInvariantError indicates a corrupted book (crossed prices,
	// filled > original). Fatal for the affected asset.
	BookInvariantError ErrorCode = "book_invariant_violation"

	// RedisConfigError represents an error when the Redis configuration is invalid or nil.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisGetError represents an error when getting a value from Redis.
	RedisGetError ErrorCode = "redis_get_error"
	// RedisSetError represents an error when setting a value in Redis.
	RedisSetError ErrorCode = "redis_set_error"
	// RedisPublishError represents an error when publishing messages to channels in Redis.
	RedisPublishError ErrorCode = "redis_publish_error"

	// KafkaReadError represents an error when reading from a Kafka topic.
	KafkaReadError ErrorCode = "kafka_read_error"
	// KafkaWriteError represents an error when writing to a Kafka topic.
	KafkaWriteError ErrorCode = "kafka_write_error"

	// TradeStoreError represents an error in the durable order/trade store.
	TradeStoreError ErrorCode = "trade_store_error"
)

// ErrorDetails represents detailed information about an error.
type ErrorDetails struct {
	// Message (required) is the user-defined error message.
	// E.g. "order quantity must be positive".
	Message string

	// Code (required) is the error code string.
	Code string

	// Field (optional) is the related field the error occurred on, if any.
	Field string

	// Object (optional) is the related object the error occurred on, if any.
	Object interface{}
}

// NewErrorDetails creates a new ErrorDetails struct with the given parameters.
func NewErrorDetails(message, code, field string) *ErrorDetails {
	return &ErrorDetails{
		Message: message,
		Code:    code,
		Field:   field,
	}
}

// NewErrorDetailsWithObject creates a new ErrorDetails struct with an associated object.
func NewErrorDetailsWithObject(message, code, field string, object interface{}) *ErrorDetails {
	return &ErrorDetails{
		Message: message,
		Code:    code,
		Field:   field,
		Object:  object,
	}
}

// Error is used to implement the Golang `error` interface.
func (e *ErrorDetails) Error() string {
	return e.Message
}

// ErrorCodeEquals checks whether a given `error` has a specific code.
func ErrorCodeEquals(err error, code ErrorCode) bool {
	errDetails, ok := err.(*ErrorDetails)
	if !ok {
		return false
	}

	return errDetails.Code == string(code)
}

// IsValidation reports whether err is an order validation error.
func IsValidation(err error) bool {
	return ErrorCodeEquals(err, OrderValidationError)
}

// IsNotFound reports whether err refers to an unknown order.
func IsNotFound(err error) bool {
	return ErrorCodeEquals(err, OrderNotFoundError)
}

// IsInvalidState reports whether err is an illegal-transition error.
func IsInvalidState(err error) bool {
	return ErrorCodeEquals(err, OrderInvalidStateError)
}

// IsInvariant reports whether err is a fatal book invariant violation.
func IsInvariant(err error) bool {
	return ErrorCodeEquals(err, BookInvariantError)
}
