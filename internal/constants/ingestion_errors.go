package constants

// Ingestion Error Codes
// These constants classify failures across connectors, templates and runs

// Configuration errors
const (
	ErrCodeConfigNotFound        = "CONFIG_NOT_FOUND"
	ErrCodeConfigNotActive       = "CONFIG_NOT_ACTIVE"
	ErrCodeConfigMalformed       = "CONFIG_MALFORMED"
	ErrCodeSupplierRequired      = "SUPPLIER_REQUIRED"
	ErrCodeTemplateNotFound      = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateInvalid       = "TEMPLATE_INVALID"
	ErrCodeCredentialsInvalid    = "CREDENTIALS_INVALID"
	ErrCodeCredentialsUnreadable = "CREDENTIALS_UNREADABLE"
	ErrCodeScheduleInvalid       = "SCHEDULE_INVALID"
)

// Transport errors
const (
	ErrCodeTransportError       = "TRANSPORT_ERROR"
	ErrCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	ErrCodeTimeout              = "TIMEOUT"
	ErrCodePathNotFound         = "PATH_NOT_FOUND"
	ErrCodeNoSupportedFile      = "NO_SUPPORTED_FILE"
	ErrCodeUnsupported          = "UNSUPPORTED_OPERATION"
	ErrCodeSampleTooLarge       = "SAMPLE_TOO_LARGE"
	ErrCodeFeedTruncated        = "FEED_TRUNCATED"
	ErrCodeUploadTooLarge       = "UPLOAD_TOO_LARGE"
)

// Parse and record errors
const (
	ErrCodeParseError        = "PARSE_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeRecordInvalid     = "RECORD_INVALID"
	ErrCodeSKUMissing        = "SKU_MISSING"
	ErrCodeRecordPanic       = "RECORD_PANIC"
	ErrCodeCatalogWrite      = "CATALOG_WRITE_FAILED"
)

// Storage errors
const (
	ErrCodeStorageError = "STORAGE_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInUse        = "RESOURCE_IN_USE"
	ErrCodeRemoteDelete = "REMOTE_DELETE_FAILED"
	ErrCodeArchive      = "ARCHIVE_FAILED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// Error Messages
// Human-readable messages corresponding to error codes

var IngestionErrorMessages = map[string]string{
	// Configuration
	ErrCodeConfigNotFound:        "The referenced connection or data source does not exist",
	ErrCodeConfigNotActive:       "The referenced connection or data source is not active",
	ErrCodeConfigMalformed:       "The configuration structure is invalid",
	ErrCodeSupplierRequired:      "A supplier must be linked to the data source or its connection",
	ErrCodeTemplateNotFound:      "The mapping template does not exist",
	ErrCodeTemplateInvalid:       "The mapping template is invalid",
	ErrCodeCredentialsInvalid:    "The connection credentials are incomplete",
	ErrCodeCredentialsUnreadable: "The stored credentials could not be decrypted",
	ErrCodeScheduleInvalid:       "The schedule recurrence is invalid",

	// Transport
	ErrCodeTransportError:       "Unable to reach the remote source",
	ErrCodeAuthenticationFailed: "Authentication with the remote source failed",
	ErrCodeTimeout:              "timeout",
	ErrCodePathNotFound:         "The remote path does not exist",
	ErrCodeNoSupportedFile:      "No csv, xlsx, xls or json file was found at the remote path",
	ErrCodeUnsupported:          "The transport does not support this operation",
	ErrCodeSampleTooLarge:       "The sample exceeded the configured size limit",
	ErrCodeFeedTruncated:        "The remote feed was cut off by the configured page limit",
	ErrCodeUploadTooLarge:       "The uploaded file exceeds the configured size limit",

	// Parse and record
	ErrCodeParseError:        "The file content could not be parsed",
	ErrCodeUnsupportedFormat: "The file format is not supported",
	ErrCodeRecordInvalid:     "The record failed validation",
	ErrCodeSKUMissing:        "Missing SKU",
	ErrCodeRecordPanic:       "Unexpected failure while processing the record",
	ErrCodeCatalogWrite:      "The record could not be written to the catalog",

	// Storage
	ErrCodeStorageError: "A database operation failed",
	ErrCodeNotFound:     "The requested resource was not found",
	ErrCodeInUse:        "The resource is still referenced by other records",
	ErrCodeRemoteDelete: "The processed file could not be removed from the remote source",
	ErrCodeArchive:      "The raw feed could not be archived",
	ErrCodeInternal:     "An unexpected error occurred",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, ok := IngestionErrorMessages[code]; ok {
		return msg
	}
	return "An unknown error occurred"
}
