package mimereader

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestMimeReader(t *testing.T) {
	payload := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x42}, 4096)...)
	mimeReader, err := NewMimeReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("cannot create mimereader: %v", err)
	}
	if mimeReader.GetMimetype() != "image/png" {
		t.Errorf("invalid mimetype: %s", mimeReader.GetMimetype())
	}
	if mimeReader.Extension() != "png" {
		t.Errorf("invalid extension: %s", mimeReader.Extension())
	}
	data, err := io.ReadAll(mimeReader)
	if err != nil {
		t.Fatalf("cannot read from mimereader: %v", err)
	}
	if !bytes.Equal(payload, data) {
		t.Errorf("read data is wrong")
	}
}

func TestMimeReaderShortText(t *testing.T) {
	mimeReader, err := NewMimeReader(strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if mimeReader.GetMimetype() != "text/plain" || mimeReader.Extension() != "txt" {
		t.Errorf("unexpected type %s", mimeReader.GetMimetype())
	}
	data, err := io.ReadAll(mimeReader)
	if err != nil || string(data) != "hello" {
		t.Errorf("unexpected data %q: %v", data, err)
	}
}

func TestMimeReaderEmpty(t *testing.T) {
	mimeReader, err := NewMimeReader(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if mimeReader.GetMimetype() != "" || mimeReader.Extension() != "" {
		t.Errorf("empty input must not have a type, got %s", mimeReader.GetMimetype())
	}
}

func TestMimeReaderBinary(t *testing.T) {
	mimeReader, err := NewMimeReader(bytes.NewReader([]byte{0, 1, 2, 3, 0xff}))
	if err != nil {
		t.Fatal(err)
	}
	if mimeReader.Extension() != "" {
		t.Errorf("octet streams have no extension, got %s", mimeReader.Extension())
	}
}
