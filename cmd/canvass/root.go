package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "canvass",
	Short: "Canvass is a workflow traversal engine",
	Long:  `Canvass walks YAML-defined question workflows, collects structured answers, and stores resumable sessions.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the workflow definitions")
}
