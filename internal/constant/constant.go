package constant

import "time"

const (
	QUERY_TIMEOUT_DURATION = 10 * time.Second

	REQUEST_SUCCESSFUL   = "Request successful"
	REQUEST_UNSUCCESSFUL = "Request unsuccessful"
)

// Context key under which the auth middleware stores the verified identity.
const CTX_IDENTITY_KEY = "user"
