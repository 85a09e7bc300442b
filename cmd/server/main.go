// Copyright 2026 The SecureFlow Authors
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/secureflow/secureflow/internal/config"
	"github.com/secureflow/secureflow/internal/server"
)

func main() {
	cmd := &cli.Command{
		Name:   "secureflow",
		Usage:  "Start the incident dashboard server",
		Flags:  config.Flags(),
		Action: server.Run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
