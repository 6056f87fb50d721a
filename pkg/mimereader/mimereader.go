package mimereader

import (
	"bytes"
	"io"
	"mime"
	"net/http"

	"emperror.dev/errors"
)

const detectSize = 512

// extensions of the types http.DetectContentType can report
var extensions = map[string]string{
	"image/png":                    "png",
	"image/jpeg":                   "jpg",
	"image/gif":                    "gif",
	"image/webp":                   "webp",
	"image/bmp":                    "bmp",
	"image/x-icon":                 "ico",
	"audio/mpeg":                   "mp3",
	"audio/wave":                   "wav",
	"audio/ogg":                    "ogg",
	"application/ogg":              "ogg",
	"video/mp4":                    "mp4",
	"video/webm":                   "webm",
	"video/avi":                    "avi",
	"application/pdf":              "pdf",
	"application/zip":              "zip",
	"application/x-gzip":           "gz",
	"application/x-rar-compressed": "rar",
	"application/x-7z-compressed":  "7z",
	"application/wasm":             "wasm",
	"application/json":             "json",
	"text/html":                    "html",
	"text/xml":                     "xml",
	"text/plain":                   "txt",
	"font/woff":                    "woff",
	"font/woff2":                   "woff2",
}

// MimeReader sniffs the media type of a stream from its first bytes and
// hands out the complete stream afterwards.
type MimeReader struct {
	reader   io.Reader
	mimetype string
}

func NewMimeReader(reader io.Reader) (*MimeReader, error) {
	data := make([]byte, detectSize)
	num, err := io.ReadFull(reader, data)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, errors.Wrap(err, "cannot read from input")
	}
	data = data[:num]
	mr := &MimeReader{
		reader: io.MultiReader(bytes.NewReader(data), reader),
	}
	if num > 0 {
		mr.mimetype, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	return mr, nil
}

func (mr *MimeReader) Read(p []byte) (int, error) {
	return mr.reader.Read(p)
}

// GetMimetype returns the sniffed media type without parameters. It is empty
// for empty input.
func (mr *MimeReader) GetMimetype() string {
	return mr.mimetype
}

// Extension returns a file extension without dot for the sniffed media type.
// Generic binary data yields no extension.
func (mr *MimeReader) Extension() string {
	return extensions[mr.mimetype]
}
