package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

func main() {
	// A .env file may carry SLACK_API_TOKEN; it is optional.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApplication(os.Stdout, os.Stderr, afero.NewOsFs(), os.LookupEnv)
	code := app.execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
