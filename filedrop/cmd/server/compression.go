package server

import (
	"compress/gzip"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/je4/utils/v2/pkg/zLogger"
)

const (
	encodingBrotli = "br"
	encodingGzip   = "gzip"
)

// compressWriter decides on the first write whether the response is
// compressed. Only text, json and xml bodies are encoded; partial and
// already encoded responses pass through.
type compressWriter struct {
	gin.ResponseWriter
	encoding string
	writer   io.WriteCloser
	decided  bool
}

func (w *compressWriter) decide() {
	if w.decided {
		return
	}
	w.decided = true
	h := w.Header()
	status := w.Status()
	if status == http.StatusPartialContent || status == http.StatusNoContent || status == http.StatusNotModified {
		return
	}
	if h.Get("Content-Encoding") != "" || h.Get("Content-Range") != "" {
		return
	}
	if !compressible(h.Get("Content-Type")) {
		return
	}
	h.Del("Content-Length")
	h.Set("Content-Encoding", w.encoding)
	h.Add("Vary", "Accept-Encoding")
	switch w.encoding {
	case encodingBrotli:
		w.writer = brotli.NewWriterLevel(w.ResponseWriter, brotli.DefaultCompression)
	default:
		w.writer = gzip.NewWriter(w.ResponseWriter)
	}
}

func (w *compressWriter) Write(data []byte) (int, error) {
	w.decide()
	if w.writer != nil {
		return w.writer.Write(data)
	}
	return w.ResponseWriter.Write(data)
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *compressWriter) Close() error {
	if w.writer == nil {
		return nil
	}
	return w.writer.Close()
}

func compressible(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case mediaType == "application/json",
		mediaType == "application/javascript",
		mediaType == "application/xml",
		mediaType == "image/svg+xml":
		return true
	}
	return false
}

// negotiateEncoding picks brotli over gzip from an Accept-Encoding header.
// Codings with q=0 are refused.
func negotiateEncoding(acceptEncoding string) string {
	var gzipOK bool
	for _, part := range strings.Split(acceptEncoding, ",") {
		fields := strings.Split(part, ";")
		coding := strings.ToLower(strings.TrimSpace(fields[0]))
		q := 1.0
		for _, param := range fields[1:] {
			name, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if ok && strings.EqualFold(name, "q") {
				if f, err := strconv.ParseFloat(value, 64); err == nil {
					q = f
				}
			}
		}
		if q <= 0 {
			continue
		}
		switch coding {
		case encodingBrotli:
			return encodingBrotli
		case encodingGzip:
			gzipOK = true
		}
	}
	if gzipOK {
		return encodingGzip
	}
	return ""
}

func compression(log zLogger.ZLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		encoding := negotiateEncoding(c.GetHeader("Accept-Encoding"))
		if encoding == "" || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}
		cw := &compressWriter{ResponseWriter: c.Writer, encoding: encoding}
		c.Writer = cw
		defer func() {
			if err := cw.Close(); err != nil {
				log.Error().Err(err).Msgf("cannot close %s writer for %s", cw.encoding, c.Request.URL.Path)
			}
			c.Writer = cw.ResponseWriter
		}()
		c.Next()
	}
}
