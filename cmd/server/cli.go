package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TFMV/sqlgate/pkg/secrets"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new encryption key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secrets.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ENCRYPTION_KEY=%s\n", key)
			return nil
		},
	}
}

func newEncryptCmd() *cobra.Command {
	var (
		key  string
		name string
	)

	cmd := &cobra.Command{
		Use:   "encrypt [value]",
		Short: "Encrypt a credential with the encryption key",
		Long: `Encrypt a credential and print it as an environment assignment.

The value is read from stdin when not given as an argument. The key defaults
to the ENCRYPTION_KEY environment variable.

Example:
  sqlgate encrypt --name ENCRYPTED_SECRET my-api-secret
  printf '%s' "$DB_PASSWORD" | sqlgate encrypt --name ENCRYPTED_ORACLE_PASSWORD`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = os.Getenv("ENCRYPTION_KEY")
			}
			if err := secrets.ValidateKey(key); err != nil {
				return err
			}

			var value string
			if len(args) == 1 {
				value = args[0]
			} else {
				v, err := readValue(cmd.InOrStdin())
				if err != nil {
					return err
				}
				value = v
			}
			if value == "" {
				return fmt.Errorf("no value to encrypt")
			}

			token, err := secrets.Encrypt(value, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", name, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "encryption key (defaults to $ENCRYPTION_KEY)")
	cmd.Flags().StringVar(&name, "name", "ENCRYPTED_SECRET", "variable name to print")

	return cmd
}

// readValue reads the first line of r without its line ending.
func readValue(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read value: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
