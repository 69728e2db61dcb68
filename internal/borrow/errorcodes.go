package borrow

import "fmt"

// ErrorCode is a flat diagnostic code. Codes are data carried on task
// results and statuses, not Go error values.
type ErrorCode string

const (
	CodeHTTPConnectionFailed        ErrorCode = "httpConnectionFailed"
	CodeHTTPRequestFailed           ErrorCode = "httpRequestFailed"
	CodeHTTPContentTypeIncompatible ErrorCode = "httpContentTypeIncompatible"
	CodeRequiredURIMissing          ErrorCode = "requiredURIMissing"
	CodeContentFileNotFound         ErrorCode = "contentFileNotFound"
	CodeOPDSFeedEntryParseError     ErrorCode = "opdsFeedEntryParseError"
	CodeOPDSFeedEntryHoldable       ErrorCode = "opdsFeedEntryHoldable"
	CodeAccountCredentialsRequired  ErrorCode = "accountCredentialsRequired"
	CodeACSNotSupported             ErrorCode = "acsNotSupported"
	CodeACSNoCredentialsPre         ErrorCode = "acsNoCredentialsPre"
	CodeACSNoCredentialsPost        ErrorCode = "acsNoCredentialsPost"
	CodeACSUnparseableACSM          ErrorCode = "acsUnparseableACSM"
	CodeACSTimedOut                 ErrorCode = "acsTimedOut"
	CodeAxisNowNotSupported         ErrorCode = "axisNowNotSupported"
	CodeAxisNowFulfillmentFailed    ErrorCode = "axisNowFulfillmentFailed"
	CodeAudioStrategyFailed         ErrorCode = "audioStrategyFailed"
	CodeNoSupportedAcquisitions     ErrorCode = "noSupportedAcquisitions"
	CodeNoSubtaskAvailable          ErrorCode = "noSubtaskAvailable"
	CodeBookDatabaseFailed          ErrorCode = "bookDatabaseFailed"
	CodeAccountsDatabaseException   ErrorCode = "accountsDatabaseException"
)

// ACSDynamicCode renders a connector-reported Adobe failure, e.g. "ACS: E_ACT_NOT_READY".
func ACSDynamicCode(code string) ErrorCode {
	return ErrorCode("ACS: " + code)
}

// ACSExceptionCode renders an uncaught Adobe connector error by its type.
func ACSExceptionCode(err error) ErrorCode {
	return ErrorCode(fmt.Sprintf("ACS: %T", err))
}

// AudioStrategyCode qualifies an audio strategy failure with the strategy's
// own code, keeping the audioStrategyFailed family greppable.
func AudioStrategyCode(code string) ErrorCode {
	if code == "" {
		return CodeAudioStrategyFailed
	}
	return ErrorCode(string(CodeAudioStrategyFailed) + ": " + code)
}
