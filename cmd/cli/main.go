package main

import (
	"github.com/mchmarny/devpoints/pkg/cli"
)

func main() {
	cli.Execute()
}
