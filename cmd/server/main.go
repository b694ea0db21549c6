package main

import (
	"github.com/spf13/cobra"

	"github.com/DoyleJ11/trivia-hub/internal/config"
)

const releaseVersion = "0.1.0"

func main() {
	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}
