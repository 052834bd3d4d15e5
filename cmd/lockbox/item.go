package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/libopenstorage/lockbox"
)

var errNotFound = errors.New("not found")

// openLockbox builds the Lockbox described by the loaded config.
func openLockbox() (*lockbox.Lockbox, error) {
	backend, err := lockbox.NewBackend(cfg.Backend, cfg.BackendOptions())
	if errors.Is(err, lockbox.ErrNotSupported) {
		return nil, fmt.Errorf("backend %q: %w", cfg.Backend, err)
	} else if err != nil {
		return nil, err
	}
	accessibility, err := lockbox.ParseAccessibility(cfg.Accessibility)
	if err != nil {
		return nil, err
	}
	return lockbox.New(backend, lockbox.Config{
		Namespace:      cfg.Namespace,
		Accessibility:  accessibility,
		Account:        cfg.Account,
		AccessGroup:    cfg.AccessGroup,
		Synchronizable: cfg.Synchronizable,
		Logger:         logrus.StandardLogger(),
	})
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value stored on a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lb, err := openLockbox()
		if err != nil {
			return err
		}
		data, err := lb.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if data == nil {
			return fmt.Errorf("%q: %w", args[0], errNotFound)
		}
		out := cmd.OutOrStdout()
		if _, err := out.Write(data); err != nil {
			return err
		}
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			fmt.Fprintln(out)
		}
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Store a value on a key",
	Long:  "Store a value. If value is omitted, it is read from the terminal without echo, or from stdin when piped.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var value []byte
		if len(args) == 2 {
			value = []byte(args[1])
		} else {
			v, err := readValue(cmd)
			if err != nil {
				return err
			}
			value = v
		}

		lb, err := openLockbox()
		if err != nil {
			return err
		}
		if err := lb.Set(cmd.Context(), args[0], value); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Stored %q\n", args[0])
		return nil
	},
}

func readValue(cmd *cobra.Command) ([]byte, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Enter value: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("reading value: %w", err)
		}
		return b, nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return []byte(strings.TrimRight(string(b), "\n")), nil
}

var deleteCmd = &cobra.Command{
	Use:     "delete <key>",
	Short:   "Remove the value stored on a key",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lb, err := openLockbox()
		if err != nil {
			return err
		}
		if err := lb.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Deleted %q\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(deleteCmd)
}
