package constants

const (
	// Context Keys
	ContextKeyRequestID = "requestID"
	ContextKeySidebar   = "sidebar"
	ContextKeyDBStatus  = "dbStatus"

	// Session Keys
	SessionName    = "devlog_session"
	SessionKeySort = "sort"

	HeaderRequestID = "X-Request-ID"
)
