package server

import (
	"context"
	"html/template"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"path/filepath"

	"emperror.dev/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/je4/utils/v2/pkg/zLogger"
	"github.com/ocfl-archive/filedrop/config"
	"github.com/ocfl-archive/filedrop/pkg/allocator"
	"github.com/ocfl-archive/filedrop/pkg/checksum"
	"github.com/ocfl-archive/filedrop/pkg/listing"
	"github.com/ocfl-archive/filedrop/pkg/namespace"
	"github.com/ocfl-archive/filedrop/pkg/osfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	TemplateFancy = "listing.gohtml"
	TemplatePlain = "plain.gohtml"
)

var templateFiles = []string{TemplateFancy, TemplatePlain}

type Server struct {
	service         string
	host, port      string
	urlExt          *url.URL
	redirectIndexTo string
	registry        *namespace.Registry
	allocator       *allocator.Allocator
	lister          *listing.Lister
	defaultFS       *osfs.FS
	tempDir         string
	maxFileSize     int64
	digests         []checksum.DigestAlgorithm
	compression     bool
	corsOrigins     []string
	metricsPath     string
	metrics         *Metrics
	templateFS      fs.FS
	templates       multitemplate.Render
	log             zLogger.ZLogger
	accessLog       io.Writer
	srv             *http.Server
}

func NewServer(service string, conf *config.FileDropConfig, registry *namespace.Registry, templateFS fs.FS, log zLogger.ZLogger, accessLog io.Writer) (*Server, error) {
	host, port, err := net.SplitHostPort(conf.WebServer.Addr())
	if err != nil {
		return nil, errors.Wrapf(err, "cannot split address %s", conf.WebServer.Addr())
	}
	urlExt, err := url.Parse(conf.WebServer.ListenURL)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse listen url %s", conf.WebServer.ListenURL)
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	if accessLog == nil {
		accessLog = io.Discard
	}
	defaultFS, err := osfs.NewFS(conf.Storage.DefaultNamespacePath(), log)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create default namespace filesystem")
	}
	tempDir, err := filepath.Abs(conf.Storage.TempPath())
	if err != nil {
		return nil, errors.Wrapf(err, "cannot resolve %s", conf.Storage.TempPath())
	}
	metrics, err := NewMetrics(service, prometheus.NewRegistry())
	if err != nil {
		return nil, errors.Wrap(err, "cannot create metrics")
	}

	srv := &Server{
		service:         service,
		host:            host,
		port:            port,
		urlExt:          urlExt,
		redirectIndexTo: conf.WebServer.RedirectIndexTo,
		registry:        registry,
		allocator:       allocator.New(log, allocator.WithObserver(metrics)),
		lister:          listing.NewLister(conf.EmojiTable(), log),
		defaultFS:       defaultFS,
		tempDir:         tempDir,
		maxFileSize:     conf.Storage.MaxFileSizeBytes,
		digests:         []checksum.DigestAlgorithm{checksum.DigestSHA256},
		compression:     conf.WebServer.Compression,
		corsOrigins:     conf.WebServer.CORSOrigins,
		metrics:         metrics,
		templateFS:      templateFS,
		log:             log,
		accessLog:       accessLog,
	}
	if conf.Metrics.Enabled {
		srv.metricsPath = conf.Metrics.Path
	}
	route, err := srv.engine()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	srv.srv = &http.Server{
		Addr:    net.JoinHostPort(host, port),
		Handler: route.Handler(),
	}
	return srv, nil
}

// Handler returns the http handler of the server.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) engine() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	route := gin.New()
	route.Use(gin.LoggerWithWriter(s.accessLog), gin.Recovery())
	if len(s.corsOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowMethods = []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodOptions}
		for _, origin := range s.corsOrigins {
			if origin == "*" {
				corsConfig.AllowAllOrigins = true
			}
		}
		if !corsConfig.AllowAllOrigins {
			corsConfig.AllowOrigins = s.corsOrigins
		}
		route.Use(cors.New(corsConfig))
	}
	if s.compression {
		route.Use(compression(s.log))
	}

	route.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	mt := multitemplate.New()
	for _, tplfile := range templateFiles {
		tpl, err := template.New(tplfile).Funcs(listing.FuncMap()).ParseFS(s.templateFS, tplfile)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot parse template %s", tplfile)
		}
		mt.Add(tplfile, tpl)
	}
	s.templates = mt
	route.HTMLRender = mt

	if s.redirectIndexTo != "" {
		route.GET("/", s.index)
	}
	route.PUT("/upload", s.upload)
	route.POST("/upload", s.upload)
	if s.metricsPath != "" {
		route.GET(s.metricsPath, gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
	}
	route.NoRoute(s.static)

	return route, nil
}

func (s *Server) index(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, s.redirectIndexTo)
}

func (s *Server) ListenAndServe(cert, key string) error {
	s.log.Info().Msgf("found %d upload namespaces: %v", s.registry.Len(), s.registry.Names())
	s.log.Info().Msgf("configured public url: %s", s.urlExt.String())
	if cert != "" && key != "" {
		s.log.Info().Msgf("starting %s at https://%s", s.service, s.srv.Addr)
		return errors.WithStack(s.srv.ListenAndServeTLS(cert, key))
	}
	s.log.Info().Msgf("starting %s at http://%s", s.service, s.srv.Addr)
	return errors.WithStack(s.srv.ListenAndServe())
}

func (s *Server) Shutdown(ctx context.Context) error {
	return errors.WithStack(s.srv.Shutdown(ctx))
}
