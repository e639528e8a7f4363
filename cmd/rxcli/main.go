package main

import (
	"github.com/robotalks/serialrx/pkg/cli/sh"
	"github.com/robotalks/serialrx/pkg/env"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
