// Package main provides the CLI entry point for the latchkey secure
// channel endpoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "latchkey",
		Short: "latchkey - negotiated secure channel endpoint",
		Long: `latchkey runs either end of a two-party secure channel: the peers
negotiate a cipher suite, exchange keys and challenges over a
public-key cryptosystem, and then carry application messages under a
symmetric session cipher with per-message authenticity and replay
protection.

This is an educational cryptosystem. Do not put secrets on it.`,
		Version: Version,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(connectCmd())
	rootCmd.AddCommand(keygenCmd())
	rootCmd.AddCommand(benchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
