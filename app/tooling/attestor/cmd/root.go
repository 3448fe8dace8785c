// Package cmd contains the attestor app.
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	signerName string
	signerPath string
)

const (
	keyExtension = ".ecdsa"
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&signerName, "signer", "s", "private.ecdsa", "Name of the private key file.")
	rootCmd.PersistentFlags().StringVarP(&signerPath, "signer-path", "p", "zoracle/signers/", "Path to the directory with private keys.")
}

var rootCmd = &cobra.Command{
	Use:   "attestor",
	Short: "Sign and submit price attestations",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	if !strings.HasSuffix(signerName, keyExtension) {
		signerName += keyExtension
	}

	return filepath.Join(signerPath, signerName)
}
