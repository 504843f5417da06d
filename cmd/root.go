// Package cmd is for command line interactions with the ramgo application
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vaser-bio/ramgo/config"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "ramgo",
	Short:   `Find minimizer-based overlaps between DNA sequences.`,
	Version: "0.1.0",
}

func init() {
	config.Defaults()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("ramgo failed")
	}
}
