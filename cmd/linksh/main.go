package main

import (
	"github.com/robotalks/bytelink/pkg/cli/sh"
	"github.com/robotalks/bytelink/pkg/env"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
