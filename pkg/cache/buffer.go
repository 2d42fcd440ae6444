package cache

import (
	"bytes"
	"net/http"
	"sync"
)

// maxPooledBuffer caps the capacity of buffers returned to the pool.
const maxPooledBuffer = 1 << 20

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// responseBuffer captures a downstream response in memory so headers can still
// be changed after the handler returns. Nothing reaches the real writer until flush.
//
// It must be released exactly once; acquireBuffer callers defer release.
type responseBuffer struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        *bytes.Buffer
}

// acquireBuffer returns a buffer sharing w's header map.
func acquireBuffer(w http.ResponseWriter) *responseBuffer {
	body := bufferPool.Get().(*bytes.Buffer)
	body.Reset()
	return &responseBuffer{
		header: w.Header(),
		status: http.StatusOK,
		body:   body,
	}
}

// Header implements http.ResponseWriter.
func (b *responseBuffer) Header() http.Header {
	return b.header
}

// WriteHeader implements http.ResponseWriter. Only the first call counts.
func (b *responseBuffer) WriteHeader(statusCode int) {
	if b.wroteHeader || statusCode < 200 {
		return
	}
	b.wroteHeader = true
	b.status = statusCode
}

// Write implements http.ResponseWriter.
func (b *responseBuffer) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

// WriteString implements io.StringWriter.
func (b *responseBuffer) WriteString(s string) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.WriteString(s)
}

// StatusCode returns the captured status.
func (b *responseBuffer) StatusCode() int {
	return b.status
}

// Len returns the captured body size.
func (b *responseBuffer) Len() int {
	return b.body.Len()
}

// Bytes returns the captured body. Valid until release.
func (b *responseBuffer) Bytes() []byte {
	return b.body.Bytes()
}

// flush sends status and body to w. Headers are final after this call.
func (b *responseBuffer) flush(w http.ResponseWriter, withBody bool) error {
	w.WriteHeader(b.status)
	if !withBody || b.body.Len() == 0 {
		return nil
	}
	_, err := w.Write(b.body.Bytes())
	return err
}

// release returns the body to the pool. Safe to call more than once.
func (b *responseBuffer) release() {
	if b.body == nil {
		return
	}
	if b.body.Cap() <= maxPooledBuffer {
		bufferPool.Put(b.body)
	}
	b.body = nil
}
