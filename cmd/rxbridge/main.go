package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"

	"github.com/robotalks/serialrx/pkg/env"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()

	e := env.NewConfig().MustNewEnv()
	defer e.Close()
	b := e.NewBridge()
	b.RunOrFail(b.HandleSignals(context.Background()))
}
