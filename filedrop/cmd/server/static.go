package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ocfl-archive/filedrop/pkg/listing"
	"github.com/ocfl-archive/filedrop/pkg/namespace"
	"github.com/ocfl-archive/filedrop/pkg/osfs"
)

func notFound(c *gin.Context) {
	c.String(http.StatusNotFound, "Not Found")
}

// static serves files of a namespace or, for paths outside of all
// namespaces, of the default namespace folder. Directories of namespaces with
// listing enabled are rendered as html.
func (s *Server) static(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		notFound(c)
		return
	}
	reqPath := c.Request.URL.Path
	var segments []string
	for _, seg := range strings.Split(reqPath, "/") {
		if seg == "" {
			continue
		}
		if !listing.Visible(seg) {
			notFound(c)
			return
		}
		segments = append(segments, seg)
	}

	var ns *namespace.Namespace
	var fsys = s.defaultFS
	name := strings.Join(segments, "/")
	if len(segments) > 0 {
		if n, ok := s.registry.Lookup(segments[0]); ok {
			ns = n
			fsys = ns.FS()
			name = strings.Join(segments[1:], "/")
		}
	}
	if name == "" {
		name = "."
	}

	info, err := fsys.Stat(name)
	if err != nil {
		if !fsys.IsNotExist(err) {
			s.log.Error().Stack().Err(err).Msgf("cannot stat %s", reqPath)
		}
		notFound(c)
		return
	}
	if info.IsDir() {
		if ns == nil || !ns.Listing().Show {
			notFound(c)
			return
		}
		if !strings.HasSuffix(reqPath, "/") {
			c.Redirect(http.StatusMovedPermanently, c.Request.URL.EscapedPath()+"/")
			return
		}
		s.listDirectory(c, ns, fsys, name, reqPath)
		return
	}

	fp, err := fsys.Open(name)
	if err != nil {
		if !fsys.IsNotExist(err) {
			s.log.Error().Stack().Err(err).Msgf("cannot open %s", reqPath)
		}
		notFound(c)
		return
	}
	defer fp.Close()
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), fp)
}

func (s *Server) listDirectory(c *gin.Context, ns *namespace.Namespace, fsys *osfs.FS, name, reqPath string) {
	tplName := TemplatePlain
	if ns.Listing().UseFancyRenderer {
		tplName = TemplateFancy
	}
	view, err := s.lister.View(fsys, name, reqPath)
	if err != nil {
		s.metrics.RecordListing(ns.Name(), err)
		s.log.Error().Stack().Err(err).Msgf("cannot list %s", reqPath)
		c.String(http.StatusInternalServerError, msgInternal)
		return
	}
	data, err := listing.Render(s.templates[tplName], view)
	s.metrics.RecordListing(ns.Name(), err)
	if err != nil {
		s.log.Error().Stack().Err(err).Msgf("cannot render listing of %s", reqPath)
		c.String(http.StatusInternalServerError, msgInternal)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}
