package store

// Capture is one stored subtitle file. Name and SourceURL are each unique
// within a store generation; an insert matching either is a silent no-op.
type Capture struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SourceURL string `json:"source_url"`
	// Data is the decoded payload. It is persisted base64-encoded and is
	// not part of listing responses.
	Data       []byte `json:"-"`
	SizeBytes  int64  `json:"size_bytes"`
	Language   string `json:"language,omitempty"`
	Format     string `json:"format,omitempty"`
	CapturedAt int64  `json:"captured_at"`
}
