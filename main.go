package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"

	"github.com/coding-garden-1/parrot-sans-pyaudio/utils"
)

const usage = "Expected 'plan', 'build' or 'history' subcommand"

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	_ = godotenv.Load()

	var err error
	switch os.Args[1] {
	case "plan":
		err = planCmd(os.Args[2:])
	case "build":
		err = buildCmd(os.Args[2:])
	case "history":
		err = historyCmd(os.Args[2:])
	default:
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		logger := utils.GetLogger()
		err := xerrors.New(err)
		logger.ErrorContext(context.Background(), "Command failed.", slog.String("command", os.Args[1]), slog.Any("error", err))
		os.Exit(1)
	}
}
