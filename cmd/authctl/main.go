package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/trainerauth/internal/authctl"
	"github.com/dmitrijs2005/trainerauth/internal/flagx"
	"github.com/dmitrijs2005/trainerauth/internal/logging"
	"github.com/dmitrijs2005/trainerauth/internal/server"
	"github.com/dmitrijs2005/trainerauth/internal/server/config"
	"github.com/dmitrijs2005/trainerauth/internal/server/notify"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "authctl:", err)
		os.Exit(1)
	}
}

func run() error {
	args := os.Args[1:]

	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	mail, err := notify.OpenSink(cfg.ResetMailOutput)
	if err != nil {
		return err
	}
	defer mail.Close()

	stack, err := server.NewStack(cfg, logger, mail)
	if err != nil {
		return err
	}
	defer stack.Close()

	app := authctl.NewApp(stack, os.Stdin, os.Stdout)
	return app.Run(context.Background(), flagx.StripArgs(args, config.FlagNames()))
}
