package checksum

import (
	"bytes"
	"crypto/sha512"
	"fmt"
	"strings"
	"testing"

	"emperror.dev/errors"
	"github.com/go-test/deep"
)

func TestChecksumCopy(t *testing.T) {
	payload := strings.Repeat("Hello World!", 10000)
	dst := &bytes.Buffer{}
	written, cs, err := ChecksumCopy(dst, strings.NewReader(payload), []DigestAlgorithm{DigestSHA512, DigestSHA256, DigestMD5})
	if err != nil {
		t.Fatal(err)
	}
	if written != int64(len(payload)) || dst.String() != payload {
		t.Errorf("destination got %d bytes, expected %d", dst.Len(), len(payload))
	}
	expected := map[DigestAlgorithm]string{
		DigestSHA512: fmt.Sprintf("%x", sha512.Sum512([]byte(payload))),
		DigestSHA256: "",
		DigestMD5:    "",
	}
	for _, alg := range []DigestAlgorithm{DigestSHA256, DigestMD5} {
		sum, err := Checksum(strings.NewReader(payload), alg)
		if err != nil {
			t.Fatal(err)
		}
		expected[alg] = sum
	}
	if diff := deep.Equal(cs, expected); diff != nil {
		t.Error(diff)
	}
}

func TestChecksumKnownValue(t *testing.T) {
	sum, err := Checksum(strings.NewReader("Hello World!"), DigestMD5)
	if err != nil {
		t.Fatal(err)
	}
	if sum != "ed076287532e86365e841e92bfc50d8c" {
		t.Errorf("unexpected md5 %s", sum)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestChecksumCopyDestinationError(t *testing.T) {
	_, _, err := ChecksumCopy(failingWriter{}, strings.NewReader(strings.Repeat("x", 100000)), []DigestAlgorithm{DigestSHA256})
	if err == nil {
		t.Fatal("expected destination error")
	}
}

func TestParseDigests(t *testing.T) {
	algs, err := ParseDigests([]string{"sha256", "md5", "sha256"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(algs, []DigestAlgorithm{DigestSHA256, DigestMD5}); diff != nil {
		t.Error(diff)
	}
	if _, err := ParseDigests([]string{"crc32"}); err == nil {
		t.Error("crc32 must be rejected")
	}
}
