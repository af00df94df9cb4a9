// Package main is the entry point of the buildwatch CLI.
package main

import (
	"github.com/huangsam/buildwatch/cmd"
	"github.com/huangsam/buildwatch/internal/contract"
)

func main() {
	err := cmd.Execute()
	cmd.Shutdown() // LogFatal exits, so close before reporting
	if err != nil {
		contract.LogFatal("buildwatch failed", err)
	}
}
