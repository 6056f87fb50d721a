package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"emperror.dev/emperror"
	"emperror.dev/errors"
	"github.com/ocfl-archive/filedrop/data/filedropdata"
	"github.com/ocfl-archive/filedrop/filedrop/cmd/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "start the upload server",
	Long: `starts the upload server. If the config file does not exist, a default
configuration is written and the command exits.`,
	Example: "filedrop serve --config ./filedrop.toml",
	Args:    cobra.NoArgs,
	Run:     doServe,
}

func initServe() {
	serveCmd.Flags().StringP("addr", "a", "", "address to listen on (host:port)")
	serveCmd.Flags().StringP("listen-url", "u", "", "public base url used in upload links")
	serveCmd.Flags().String("uploads", "", "uploads directory")
}

func doServeConf(cmd *cobra.Command) {
	if str := getFlagString(cmd, "addr"); str != "" {
		host, port, err := net.SplitHostPort(str)
		if err != nil {
			emperror.Panic(cmd.Help())
			cobra.CheckErr(errors.Wrapf(err, "invalid --addr '%s'", str))
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			emperror.Panic(cmd.Help())
			cobra.CheckErr(errors.Wrapf(err, "invalid port in --addr '%s'", str))
		}
		conf.WebServer.Host = host
		conf.WebServer.Port = p
	}
	if str := getFlagString(cmd, "listen-url"); str != "" {
		conf.WebServer.ListenURL = str
	}
	if str := getFlagString(cmd, "uploads"); str != "" {
		conf.Storage.UploadsDirectory = str
	}
}

func doServe(cmd *cobra.Command, args []string) {
	if _, err := os.Stat(persistentFlagConfigFile); errors.Is(err, fs.ErrNotExist) {
		cobra.CheckErr(writeDefaultConfig(persistentFlagConfigFile))
		fmt.Printf("no configuration found, default configuration written to %s\nplease edit it and restart\n", persistentFlagConfigFile)
		return
	}

	var err error
	conf, err = loadConfig()
	cobra.CheckErr(err)
	doServeConf(cmd)
	cobra.CheckErr(conf.Validate())

	logger, closeLogger, err := createLogger(conf.Log)
	cobra.CheckErr(err)
	defer closeLogger()

	for name, ns := range conf.Namespaces {
		if ns.KeyGenerated {
			logger.Warn().Msgf("namespace %s has no key, using random key %s", name, ns.Key)
		}
	}

	var accessLog io.Writer = io.Discard
	if conf.WebServer.AccessLog != "" {
		fp, err := os.OpenFile(conf.WebServer.AccessLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			logger.Error().Stack().Err(err).Msgf("cannot open access log %s", conf.WebServer.AccessLog)
			return
		}
		defer fp.Close()
		accessLog = fp
	}

	registry, err := conf.Registry(logger)
	if err != nil {
		logger.Error().Stack().Err(err).Msg("cannot create namespaces")
		return
	}
	if err := server.PrepareStorage(conf, registry, logger); err != nil {
		logger.Error().Stack().Err(err).Msg("cannot prepare uploads directory")
		return
	}

	templateFS, err := fs.Sub(filedropdata.TemplateRoot, "templates")
	if err != nil {
		logger.Error().Stack().Err(err).Msg("cannot get templates")
		return
	}
	srv, err := server.NewServer("filedrop", conf, registry, templateFS, logger, accessLog)
	if err != nil {
		logger.Error().Stack().Err(err).Msg("cannot create server")
		return
	}

	// process waiting for interrupt signal (TERM or INT)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.ListenAndServe(conf.WebServer.CertFile, conf.WebServer.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := eg.Wait(); err != nil {
		logger.Error().Stack().Err(err).Msg("server stopped with error")
		return
	}
	logger.Info().Msg("server stopped")
}
