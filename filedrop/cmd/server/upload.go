package server

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/ocfl-archive/filedrop/pkg/checksum"
	"github.com/ocfl-archive/filedrop/pkg/mimereader"
	"github.com/ocfl-archive/filedrop/pkg/uploadlink"
)

const (
	fieldFile      = "file"
	fieldNamespace = "namespace"
	fieldAuthKey   = "auth_key"

	maxFieldSize     = 4096
	maxExtensionSize = 32

	msgAuthFailure = "Failed to authenticate"
	msgTooLarge    = "Uploaded file is too large"
	msgInvalidForm = "Invalid upload form"
	msgCreatePath  = "Failed to create path for uploaded file"
	msgPersist     = "Failed to persist uploaded file"
	msgInternal    = "Internal server error"
)

var errMissingField = errors.New("missing form field")

// UploadResponse carries either a link or an error message.
type UploadResponse struct {
	Link  *string `json:"link"`
	Error *string `json:"error"`
}

func uploadError(c *gin.Context, status int, msg string) {
	c.JSON(status, UploadResponse{Error: &msg})
}

// uploadForm is a streamed multipart form. The file part is staged in the
// temp directory of the uploads root.
type uploadForm struct {
	namespace  string
	authKey    string
	fileName   string
	stagedPath string
	size       int64
	mimetype   string
	sniffedExt string
	digests    map[checksum.DigestAlgorithm]string
}

func (f *uploadForm) cleanup() error {
	if f.stagedPath == "" {
		return nil
	}
	err := os.Remove(f.stagedPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.WithStack(err)
	}
	return nil
}

func readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxFieldSize+1))
	if err != nil {
		return "", errors.Wrapf(err, "cannot read field %s", part.FormName())
	}
	if len(data) > maxFieldSize {
		return "", errors.Errorf("field %s too long", part.FormName())
	}
	return string(data), nil
}

func (s *Server) stage(form *uploadForm, part *multipart.Part) error {
	if form.stagedPath != "" {
		return errors.New("more than one file part")
	}
	fp, err := os.CreateTemp(s.tempDir, "upload-*")
	if err != nil {
		return errors.Wrapf(err, "cannot create temporary file in %s", s.tempDir)
	}
	form.stagedPath = fp.Name()
	form.fileName = part.FileName()
	if err := fp.Chmod(0644); err != nil {
		fp.Close()
		return errors.Wrapf(err, "cannot change mode of %s", form.stagedPath)
	}

	mr, err := mimereader.NewMimeReader(part)
	if err != nil {
		fp.Close()
		return errors.WithStack(err)
	}
	size, digests, err := checksum.ChecksumCopy(fp, mr, s.digests)
	if err != nil {
		fp.Close()
		return errors.Wrapf(err, "cannot stage %s", form.fileName)
	}
	if err := fp.Close(); err != nil {
		return errors.Wrapf(err, "cannot close %s", form.stagedPath)
	}
	form.size = size
	form.digests = digests
	form.mimetype = mr.GetMimetype()
	form.sniffedExt = mr.Extension()
	return nil
}

func (s *Server) readUploadForm(req *http.Request) (*uploadForm, error) {
	form := &uploadForm{}
	reader, err := req.MultipartReader()
	if err != nil {
		return form, errors.WithStack(err)
	}
	var hasNamespace, hasKey bool
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return form, errors.Wrap(err, "cannot read multipart form")
		}
		switch part.FormName() {
		case fieldFile:
			err = s.stage(form, part)
		case fieldNamespace:
			form.namespace, err = readField(part)
			hasNamespace = true
		case fieldAuthKey:
			form.authKey, err = readField(part)
			hasKey = true
		default:
			_, err = io.Copy(io.Discard, part)
		}
		part.Close()
		if err != nil {
			return form, err
		}
	}
	switch {
	case form.stagedPath == "":
		return form, errors.Wrap(errMissingField, fieldFile)
	case !hasNamespace:
		return form, errors.Wrap(errMissingField, fieldNamespace)
	case !hasKey:
		return form, errors.Wrap(errMissingField, fieldAuthKey)
	}
	return form, nil
}

// uploadExtension takes the extension of the client file name, falling back
// to the sniffed one. The result is lower case and slug safe.
func uploadExtension(fileName, sniffed string) string {
	base := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	var ext string
	if i := strings.LastIndex(base, "."); i > 0 {
		ext = base[i+1:]
	}
	ext = strings.ToLower(ext)
	if ext != "" && !slug.IsSlug(ext) {
		ext = slug.Make(ext)
	}
	if len(ext) > maxExtensionSize {
		ext = ""
	}
	if ext == "" {
		ext = sniffed
	}
	return ext
}

func (s *Server) upload(c *gin.Context) {
	start := time.Now()
	var nsName string
	status := http.StatusOK
	var size int64
	defer func() {
		s.metrics.RecordUpload(nsName, status, size, time.Since(start))
	}()
	fail := func(code int, msg string) {
		status = code
		uploadError(c, code, msg)
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxFileSize)
	form, err := s.readUploadForm(c.Request)
	defer func() {
		if err := form.cleanup(); err != nil {
			s.log.Error().Stack().Err(err).Msg("cannot remove staged upload")
		}
	}()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.log.Info().Msgf("upload exceeds %d bytes", maxErr.Limit)
			fail(http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		s.log.Info().Err(err).Msg("invalid upload form")
		fail(http.StatusBadRequest, msgInvalidForm)
		return
	}

	ns, err := s.registry.Authenticate(form.namespace, form.authKey)
	if err != nil {
		s.log.Info().Err(err).Str("remote", c.ClientIP()).Msg("upload rejected")
		fail(http.StatusUnauthorized, msgAuthFailure)
		return
	}
	nsName = ns.Name()

	res, err := s.allocator.Allocate(ns, uploadExtension(form.fileName, form.sniffedExt))
	if err != nil {
		s.log.Error().Stack().Err(err).Msgf("cannot allocate file name in namespace %s", ns.Name())
		fail(http.StatusInternalServerError, msgCreatePath)
		return
	}
	if err := ns.FS().Rename(form.stagedPath, res.Name); err != nil {
		s.log.Error().Stack().Err(err).Msgf("cannot persist upload to %s", res.Path)
		if err := ns.FS().Remove(res.Name); err != nil && !ns.FS().IsNotExist(err) {
			s.log.Error().Stack().Err(err).Msgf("cannot remove reservation %s", res.Path)
		}
		fail(http.StatusInternalServerError, msgPersist)
		return
	}
	form.stagedPath = ""

	linkURL, err := uploadlink.Build(s.urlExt, ns.Name(), res.Path)
	if err != nil {
		s.log.Error().Stack().Err(err).Msgf("cannot build link for %s", res.Path)
		fail(http.StatusInternalServerError, msgInternal)
		return
	}
	link := linkURL.String()
	size = form.size
	s.log.Info().
		Str("namespace", ns.Name()).
		Str("file", res.Name).
		Str("client_name", form.fileName).
		Str("mimetype", form.mimetype).
		Int64("size", form.size).
		Str("sha256", form.digests[checksum.DigestSHA256]).
		Int("attempts", res.Attempts).
		Msg("upload stored")
	c.JSON(http.StatusOK, UploadResponse{Link: &link})
}
