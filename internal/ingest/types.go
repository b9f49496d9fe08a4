package ingest

import "net/http"

// RequestEvent is a request-sent observation from the network-observation
// collaborator.
type RequestEvent struct {
	URL       string
	Headers   http.Header
	Initiator string
}

// ResponseEvent is a request-completed observation. TabID identifies the
// owning page so its {url, title} can be resolved for naming.
type ResponseEvent struct {
	URL         string
	ContentType string
	TabID       string
}
