package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "tresinky",
	Short: "Family photo gallery server.",
	Long: `Serves the gallery API and static files, and keeps the album and
image tables in step with the gallery directory tree.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadEnv()
	},
	// serving is the default action
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(syncCmd)
}

func loadEnv() {
	if envFile == "" {
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
}
