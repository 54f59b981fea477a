package main

import (
	"log"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"

	"github.com/openboard/boardsync/board"
	boardsyncauth "github.com/openboard/boardsync/boardsync-auth"
	boardsynccli "github.com/openboard/boardsync/boardsync-cli"
	boardsyncrest "github.com/openboard/boardsync/boardsync-rest"
	boardsyncws "github.com/openboard/boardsync/boardsync-ws"
)

var service = boardsynccli.NewService("boardsync")

func main() {
	app := boardsynccli.App(
		service,
		action,
		append(
			boardsynccli.CommonFlags,
			boardsynccli.PortFlag(8000),
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(ctx *cli.Context) error {
	opts := &boardsynccli.CommonOpts
	logger := boardsynccli.Logger(service)

	verifier := boardsyncauth.WithTimeout(
		boardsyncauth.NewJWTVerifier([]byte(opts.Secret)),
		opts.AuthTimeout,
	)

	dispatcher := boardsyncws.NewDispatcher(logger)
	registry := board.NewRegistry(dispatcher, logger)

	handler := &boardsyncws.Handler{
		Registry:       registry,
		Dispatcher:     dispatcher,
		Verifier:       verifier,
		Logger:         logger,
		AllowedOrigins: opts.AllowedOrigins.Value(),
		QueueSize:      opts.QueueSize,
		WriteTimeout:   opts.WriteTimeout,
		IdleTimeout:    opts.IdleTimeout,
	}

	routes := chi.NewRouter()
	boardsyncrest.Middlewares(service, routes, opts.AllowedOrigins.Value())
	routes.Get("/health", boardsyncrest.Health())
	routes.Get("/ws/{board}", handler.ServeHTTP)

	return boardsyncrest.Webserver(service, routes)
}
