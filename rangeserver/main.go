// Copyright 2021 Tamas Gulacsi. All rights reserved.

// Command rangeserver serves the row range extraction as an upload form.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UNO-SOFT/sheetrange/transform"
	"github.com/UNO-SOFT/sheetrange/web"
	"github.com/UNO-SOFT/zlog/v2"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

var verbose zlog.VerboseVar
var logger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()

func main() {
	if err := Main(); err != nil {
		logger.Error("MAIN", "error", err)
		os.Exit(1)
	}
}

func Main() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("load .env", "error", err)
	}

	fs := flag.NewFlagSet("rangeserver", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	flagAddr := fs.String("addr", ":8080", "address to listen on")
	flagMaxUpload := fs.Int64("max-upload", web.DefaultMaxUpload, "maximum upload size in bytes")
	flagTimeout := fs.Duration("timeout", time.Minute, "request timeout")

	app := ffcli.Command{Name: "rangeserver", FlagSet: fs,
		Options: []ff.Option{ff.WithEnvVarPrefix("RANGESERVER")},
		Exec: func(ctx context.Context, args []string) error {
			srv := web.Server{
				Transformer: transform.New(logger),
				Logger:      logger,
				MaxUpload:   *flagMaxUpload,
			}
			hs := &http.Server{
				Addr:              *flagAddr,
				Handler:           http.TimeoutHandler(srv.Handler(), *flagTimeout, "timeout"),
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return ctx },
			}
			go func() {
				<-ctx.Done()
				shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				hs.Shutdown(shutCtx)
			}()
			logger.Info("listening", "addr", hs.Addr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	if err := app.Parse(os.Args[1:]); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return app.Run(ctx)
}
