package checksum

import (
	"fmt"
	"io"
	"sync"

	"emperror.dev/errors"
)

// ChecksumWriter copies a stream to its destination and computes digests
// of it concurrently.
type ChecksumWriter struct {
	sync.Mutex
	checksums []DigestAlgorithm
	cs        map[DigestAlgorithm]string
	errors    []error
	dataLock  sync.Mutex
}

func NewChecksumWriter(checksums []DigestAlgorithm) *ChecksumWriter {
	return &ChecksumWriter{
		checksums: checksums,
		cs:        map[DigestAlgorithm]string{},
	}
}

// ChecksumCopy copies src to dst and returns the digests of the copied data.
func ChecksumCopy(dst io.Writer, src io.Reader, checksums []DigestAlgorithm) (int64, map[DigestAlgorithm]string, error) {
	return NewChecksumWriter(checksums).Copy(dst, src)
}

func Checksum(src io.Reader, checksum DigestAlgorithm) (string, error) {
	sink, err := GetHash(checksum)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if _, err := io.Copy(sink, src); err != nil {
		return "", errors.Wrapf(err, "cannot create checksum %s", checksum)
	}
	return fmt.Sprintf("%x", sink.Sum(nil)), nil
}

func (c *ChecksumWriter) doChecksum(reader *io.PipeReader, csType DigestAlgorithm, done chan<- bool) {
	// we should end in all cases
	defer func() { done <- true }()

	sink, err := GetHash(csType)
	if err != nil {
		c.setError(err)
		reader.CloseWithError(err)
		return
	}
	if _, err := io.Copy(sink, reader); err != nil {
		c.setError(errors.Wrapf(err, "cannot create checksum %s", csType))
		reader.CloseWithError(err)
		return
	}
	c.setResult(csType, fmt.Sprintf("%x", sink.Sum(nil)))
}

func (c *ChecksumWriter) setResult(csType DigestAlgorithm, checksum string) {
	c.dataLock.Lock()
	defer c.dataLock.Unlock()
	c.cs[csType] = checksum
}

func (c *ChecksumWriter) setError(err error) {
	c.dataLock.Lock()
	defer c.dataLock.Unlock()
	c.errors = append(c.errors, err)
}

func (c *ChecksumWriter) clear() {
	c.dataLock.Lock()
	defer c.dataLock.Unlock()
	c.errors = []error{}
	c.cs = map[DigestAlgorithm]string{}
}

// Copy streams src into dst and every digest pipe. It returns the number of
// bytes read from src.
func (c *ChecksumWriter) Copy(dst io.Writer, src io.Reader) (int64, map[DigestAlgorithm]string, error) {
	c.Lock()
	defer c.Unlock()

	c.clear()

	done := make(chan bool)
	writers := []io.Writer{}
	pipes := []*io.PipeWriter{}
	for _, csType := range c.checksums {
		pr, pw := io.Pipe()
		pipes = append(pipes, pw)
		writers = append(writers, pw)
		go c.doChecksum(pr, csType, done)
	}

	pr, pw := io.Pipe()
	pipes = append(pipes, pw)
	writers = append(writers, pw)
	go func() {
		defer func() { done <- true }()
		if _, err := io.Copy(dst, pr); err != nil {
			c.setError(errors.Wrap(err, "cannot copy to target destination"))
			pr.CloseWithError(err)
		}
	}()

	written, err := io.Copy(io.MultiWriter(writers...), src)
	for _, p := range pipes {
		if err != nil {
			p.CloseWithError(err)
		} else {
			p.Close()
		}
	}

	// wait until all checksums and destination are done
	for cnt := 0; cnt < len(pipes); cnt++ {
		<-done
	}

	// a failing source or destination is the cause of all pipe errors
	if err != nil {
		return written, nil, errors.Wrap(err, "cannot copy")
	}
	c.dataLock.Lock()
	defer c.dataLock.Unlock()
	if len(c.errors) > 0 {
		return written, nil, errors.Combine(c.errors...)
	}
	result := make(map[DigestAlgorithm]string, len(c.cs))
	for k, v := range c.cs {
		result[k] = v
	}
	return written, result, nil
}
