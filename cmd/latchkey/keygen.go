package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/postalsys/latchkey/internal/keygen"
	"github.com/postalsys/latchkey/internal/prompt"
)

func keygenCmd() *cobra.Command {
	var algorithm string
	var keySize int
	var out string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a key record file for a cryptosystem",
		Long: `Generates the JSON key record a config file points at. Large
moduli can take a while; doing it here keeps endpoint startup fast.

BlumGoldwasser generates its keys at startup and needs no record.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(out); err == nil && term.IsTerminal(int(os.Stdin.Fd())) {
				ok, err := prompt.Confirm(fmt.Sprintf("overwrite %s?", out))
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}

			fmt.Printf("generating %s key record (%d bits)...\n", algorithm, keySize)
			record, err := keygen.Generate(algorithm, keySize)
			if err != nil {
				return err
			}
			if err := record.WriteFile(out); err != nil {
				return err
			}

			fmt.Printf("wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "RSA", "algorithm name (RSA, SSRSA, GoldwasserMicali, RC4)")
	cmd.Flags().IntVarP(&keySize, "key-size", "k", 2048, "key size in bits")
	cmd.Flags().StringVarP(&out, "out", "o", "key.json", "output file")
	return cmd
}
