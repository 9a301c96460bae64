package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dicescraper/pkg/secrets"
	"dicescraper/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage LLM provider API keys",
	Long: `Manage API keys for the position type classifier.

Keys are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables DICESCRAPER_<PROVIDER>_API_KEY (read only)

Ollama runs locally and needs no key.`,
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key <provider>",
	Short: "Store an API key securely",
	Example: `  dicescraper auth set-key openai
  echo "$GROQ_KEY" | dicescraper auth set-key groq`,
	Args: cobra.ExactArgs(1),
	RunE: runSetKey,
}

var removeKeyCmd = &cobra.Command{
	Use:   "remove-key <provider>",
	Short: "Remove a stored API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoveKey,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which providers have a key and where it is stored",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setKeyCmd)
	authCmd.AddCommand(removeKeyCmd)
	authCmd.AddCommand(statusCmd)
}

func runSetKey(cmd *cobra.Command, args []string) error {
	provider := strings.ToLower(strings.TrimSpace(args[0]))

	manager, err := secrets.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize secret store: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s API key (input is hidden): ", provider)
	key, err := readSecret(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}

	if err := manager.Set(provider, key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Stored %s key %s", provider, secrets.Mask(key)))
	return nil
}

func runRemoveKey(cmd *cobra.Command, args []string) error {
	provider := strings.ToLower(strings.TrimSpace(args[0]))

	manager, err := secrets.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize secret store: %w", err)
	}
	if err := manager.Remove(provider); err != nil {
		return fmt.Errorf("failed to remove API key: %w", err)
	}

	ui.PrintSuccess("Removed key for " + provider)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := secrets.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize secret store: %w", err)
	}

	statuses := manager.Status()
	if len(statuses) == 0 {
		ui.PrintInfo("No stored keys", "Use 'dicescraper auth set-key <provider>' to add one")
		return nil
	}

	ui.PrintHighlight("Stored API keys")
	out := cmd.OutOrStdout()
	for _, st := range statuses {
		fmt.Fprintf(out, "  %-8s %-14s %s", st.Provider, st.Masked, ui.Dim(st.Store))
		if !st.Modified.IsZero() {
			fmt.Fprintf(out, "  %s", ui.Dim(st.Modified.Format("2006-01-02 15:04")))
		}
		fmt.Fprintln(out)
	}
	return nil
}

// readSecret reads without echo from a terminal, or one line from in otherwise
func readSecret(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && f.Fd() == uintptr(syscall.Stdin) && term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
