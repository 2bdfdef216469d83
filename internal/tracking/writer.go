package tracking

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"sync"
)

// sendWriter runs its callback once, immediately before the response headers
// are committed: on the first final WriteHeader, Write, ReadFrom or Flush, or
// when the handler returns without writing anything.
type sendWriter struct {
	http.ResponseWriter
	once     sync.Once
	callback func()
	fired    bool
	hijacked bool
}

func newSendWriter(w http.ResponseWriter, callback func()) *sendWriter {
	return &sendWriter{ResponseWriter: w, callback: callback}
}

func (w *sendWriter) fire() {
	w.once.Do(func() {
		w.fired = true
		if w.callback != nil {
			w.callback()
		}
	})
}

func (w *sendWriter) WriteHeader(code int) {
	// 1xx responses other than 101 leave the final headers open.
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.fire()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sendWriter) Write(b []byte) (int, error) {
	w.fire()
	return w.ResponseWriter.Write(b)
}

func (w *sendWriter) ReadFrom(src io.Reader) (int64, error) {
	w.fire()
	if rf, ok := w.ResponseWriter.(io.ReaderFrom); ok {
		return rf.ReadFrom(src)
	}
	return io.Copy(writerOnly{w.ResponseWriter}, src)
}

func (w *sendWriter) Flush() {
	w.fire()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection to the handler. Pending counter updates can no
// longer reach the client and are dropped.
func (w *sendWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	w.hijacked = true
	w.once.Do(func() {})
	return hj.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *sendWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// finish runs the callback if the handler never wrote. It reports whether
// the callback was skipped because the connection was hijacked first.
func (w *sendWriter) finish() (lost bool) {
	if w.hijacked && !w.fired {
		return true
	}
	w.fire()
	return false
}

type writerOnly struct {
	io.Writer
}
