package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/ardnew/tasq/cli"
	"github.com/ardnew/tasq/lang"
	"github.com/ardnew/tasq/log"
	"github.com/ardnew/tasq/run"
)

func main() {
	err := cli.Run(context.Background(), os.Exit, os.Args[1:]...)
	if err != nil {
		// WrapError surfaces the structured attributes of interpreter errors
		// through LogValue; foreign errors log their message alone.
		log.Error(
			"run failed",
			slog.Any("error", lang.WrapError(err)),
		)

		// Failed task commands propagate their exit status.
		ce := &run.CommandError{}
		if errors.As(err, &ce) {
			os.Exit(ce.Code)
		}

		os.Exit(1)
	}
}
