package errors

import (
	"net/http"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
)

// Engine Error Codes — optimization pipeline failures.
const (
	ErrCodeInsufficientData   ErrorCode = "ENG_001"
	ErrCodeUniverseTooSmall   ErrorCode = "ENG_002"
	ErrCodeConstraintResidual ErrorCode = "ENG_003"
	ErrCodeInvalidRiskScore   ErrorCode = "ENG_004"
	ErrCodeDegenerateSeries   ErrorCode = "ENG_005"
)

// Market-Data Error Codes — external provider failures.
const (
	ErrCodeMarketDataUnavailable ErrorCode = "MKT_001"
	ErrCodeMarketDataRateLimited ErrorCode = "MKT_002"
	ErrCodeMarketDataParseError  ErrorCode = "MKT_003"
	ErrCodeQuoteNotFound         ErrorCode = "MKT_004"
)

// Portfolio Error Codes — persistence and lifecycle failures.
const (
	ErrCodePortfolioNotFound      ErrorCode = "PRT_001"
	ErrCodeProfileNotFound        ErrorCode = "PRT_002"
	ErrCodePortfolioSaveFailed    ErrorCode = "PRT_003"
	ErrCodePortfolioDrawdownState ErrorCode = "PRT_004"
)

// Notification Error Codes.
const (
	ErrCodeNotificationPublishFailed ErrorCode = "NTF_001"
)

// Aliases kept short for the most frequent call sites.
const (
	CodeInternal      = ErrCodeInternal
	CodeInvalidParam  = ErrCodeBadRequest
	CodeNotFound      = ErrCodeNotFound
	CodeConflict      = ErrCodeConflict
	CodeOK            = ErrorCode("OK")
	CodeUnknown       = ErrorCode("UNKNOWN")
	CodeDatabaseError = ErrCodeDatabaseError
	CodeCacheError    = ErrCodeCacheError
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes for the API layer.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,

	ErrCodeInsufficientData:   http.StatusUnprocessableEntity,
	ErrCodeUniverseTooSmall:   http.StatusUnprocessableEntity,
	ErrCodeConstraintResidual: http.StatusInternalServerError,
	ErrCodeInvalidRiskScore:   http.StatusBadRequest,
	ErrCodeDegenerateSeries:   http.StatusUnprocessableEntity,

	ErrCodeMarketDataUnavailable: http.StatusBadGateway,
	ErrCodeMarketDataRateLimited: http.StatusTooManyRequests,
	ErrCodeMarketDataParseError:  http.StatusBadGateway,
	ErrCodeQuoteNotFound:         http.StatusNotFound,

	ErrCodePortfolioNotFound:      http.StatusNotFound,
	ErrCodeProfileNotFound:        http.StatusNotFound,
	ErrCodePortfolioSaveFailed:    http.StatusInternalServerError,
	ErrCodePortfolioDrawdownState: http.StatusConflict,

	ErrCodeNotificationPublishFailed: http.StatusInternalServerError,
}

// HTTPStatus returns the HTTP status associated with the code, defaulting to
// 500 for codes with no explicit mapping.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := ErrorCodeHTTPStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}
