package config

const (
	DefaultBackendURL             = "http://localhost:8080"
	DefaultPollingIntervalSeconds = 3
	DefaultTaskTimeoutSeconds     = 1800
	DefaultExcelThreshold         = 15
	DefaultHTTPTimeoutSeconds     = 30
	DefaultSearchLimit            = 10
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "json"
)

// Default column widths for text rendering.
const (
	DefaultRankColumnWidth   = 3
	DefaultUserIDColumnWidth = 14
	DefaultNameColumnWidth   = 18
	DefaultCountColumnWidth  = 6
)
