package responder

import (
	"mime"
	"net/http"
	"strconv"
)

// Attachment is a binary download.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
	// Header holds extra response headers, e.g. size statistics.
	Header http.Header
}

// File writes a as a download with Content-Disposition: attachment.
func File(w http.ResponseWriter, r *http.Request, a Attachment, opts ...Option) {
	meta := NewMeta(opts...)

	h := w.Header()
	for k, values := range a.Header {
		for _, v := range values {
			h.Add(k, v)
		}
	}
	if meta.TraceId != "" {
		h.Set("X-Trace-ID", meta.TraceId)
	}
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(a.Data)))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	h.Set("X-Content-Type-Options", "nosniff")

	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(a.Data)
	}
}
