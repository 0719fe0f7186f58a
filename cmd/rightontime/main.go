package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/sandeepkv93/rightontime/internal/cli"
)

func main() {
	// A missing .env is fine; RIGHTONTIME_* variables can come from the shell.
	_ = godotenv.Load()

	if err := cli.Execute(context.Background()); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
