package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/credential"
	"github.com/ngoclaw/upstreamgw/internal/infrastructure/tokenstore"
)

const (
	cliVersion     = "0.2.0"
	cliName        = "tokenctl"
	tokensFileName = "tokens.bin"
	logsFileName   = "logs.bin"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   cliName,
		Short: "tokenctl — upstream token pool administration",
	}

	rootCmd.AddCommand(
		addCmd(),
		removeCmd(),
		listCmd(),
		aliasCmd(),
		doctorCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", cliName, cliVersion)
			},
		},
	)

	return rootCmd
}

func dataDir() string {
	if d := os.Getenv("DATA_DIR"); d != "" {
		return d
	}
	return filepath.Join(os.Getenv("HOME"), ".ngoclaw", "data")
}

func logsDir() string {
	if d := os.Getenv("LOGS_DIR"); d != "" {
		return d
	}
	return filepath.Join(os.Getenv("HOME"), ".ngoclaw", "logs")
}

func openStore() (*tokenstore.Store, string, error) {
	path := filepath.Join(dataDir(), tokensFileName)
	store := tokenstore.New()
	if err := store.Load(path); err != nil {
		return nil, "", fmt.Errorf("load token snapshot: %w", err)
	}
	return store, path, nil
}

func addCmd() *cobra.Command {
	var alias string
	cmd := &cobra.Command{
		Use:   "add <wire-encoded-credential>",
		Short: "Register a credential blob and persist it to the token pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, path, err := openStore()
			if err != nil {
				return err
			}

			record, err := credential.DecodeWire(args[0])
			if err != nil {
				return fmt.Errorf("decode credential: %w", err)
			}

			entry, err := store.Add(*record)
			if err != nil {
				return fmt.Errorf("add credential: %w", err)
			}
			if alias != "" {
				if err := store.SetAlias(entry.ID, entity.Alias(alias)); err != nil {
					return fmt.Errorf("set alias: %w", err)
				}
			}

			if err := store.Save(path); err != nil {
				return fmt.Errorf("save token snapshot: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added token id=%d alias=%s\n", entry.ID, entry.Alias)
			return nil
		},
	}
	cmd.Flags().StringVar(&alias, "alias", "", "human-readable alias for the new token")
	return cmd
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a token from the pool by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}

			store, path, err := openStore()
			if err != nil {
				return err
			}
			if err := store.Remove(id); err != nil {
				return fmt.Errorf("remove token: %w", err)
			}
			if err := store.Save(path); err != nil {
				return fmt.Errorf("save token snapshot: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "removed token id=%d\n", id)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every token currently in the pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}

			entries := store.List()
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no tokens registered")
				return nil
			}
			for _, e := range entries {
				provider := ""
				if e.Credential.TokenInfo != nil {
					provider = e.Credential.TokenInfo.Token.Provider
				}
				fmt.Fprintf(out, "id=%-4d alias=%-24s provider=%s\n", e.ID, e.Alias, provider)
			}
			return nil
		},
	}
}

func aliasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alias <id> <name>",
		Short: "Set or replace a token's alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}

			store, path, err := openStore()
			if err != nil {
				return err
			}
			if err := store.SetAlias(id, entity.Alias(args[1])); err != nil {
				return fmt.Errorf("set alias: %w", err)
			}
			if err := store.Save(path); err != nil {
				return fmt.Errorf("save token snapshot: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "token id=%d alias=%s\n", id, args[1])
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the data and logs directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tokenctl doctor v%s\n\n", cliVersion)

			allOK := true
			for _, c := range []struct {
				name  string
				check func() (string, bool)
			}{
				{"data dir writable", checkDirWritable(dataDir())},
				{"tokens.bin readable", checkFileReadable(filepath.Join(dataDir(), tokensFileName))},
				{"logs dir writable", checkDirWritable(logsDir())},
				{"logs.bin readable", checkFileReadable(filepath.Join(logsDir(), logsFileName))},
			} {
				val, ok := c.check()
				icon := "OK"
				if !ok {
					icon = "FAIL"
					allOK = false
				}
				fmt.Fprintf(out, "  [%s] %s: %s\n", icon, c.name, val)
			}

			fmt.Fprintln(out)
			if !allOK {
				return fmt.Errorf("one or more checks failed")
			}
			fmt.Fprintln(out, "all checks passed")
			return nil
		},
	}
}

func checkDirWritable(dir string) func() (string, bool) {
	return func() (string, bool) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err.Error(), false
		}
		probe := filepath.Join(dir, ".tokenctl-probe")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			return err.Error(), false
		}
		os.Remove(probe)
		return dir, true
	}
}

func checkFileReadable(path string) func() (string, bool) {
	return func() (string, bool) {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return "not yet created", true
			}
			return err.Error(), false
		}
		return path, true
	}
}
