package streaming

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
)

// randomBoundary returns a fresh multipart boundary token.
func randomBoundary() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// ServeMJPEG writes the multipart/x-mixed-replace response for session to
// w, emitting each subscribed frame in the exact framing spec §4.3 names,
// until the request context is done or the subscription channel closes
// (session torn down). The Content-Type header (fixed boundary) and
// cache-disabling headers are set once, before the first frame.
func ServeMJPEG(w http.ResponseWriter, r *http.Request, session *StreamSession) error {
	frames, unsubscribe, err := session.Subscribe()
	if err != nil {
		return err
	}
	defer unsubscribe()

	boundary := randomBoundary()
	header := w.Header()
	header.Set("Content-Type", fmt.Sprintf("multipart/x-mixed-replace; boundary=%s", boundary))
	header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	header.Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)

	for {
		select {
		case <-r.Context().Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if err := writeFrame(w, boundary, frame); err != nil {
				return err
			}
			if canFlush {
				flusher.Flush()
			}
		}
	}
}

// writeFrame emits one multipart part in the exact framing spec §4.3
// names: "--boundary\r\nContent-Type: image/jpeg\r\nContent-Length:
// N\r\n\r\n<N bytes>\r\n".
func writeFrame(w io.Writer, boundary string, frame []byte) error {
	_, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(frame))
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\r\n")
	return err
}
