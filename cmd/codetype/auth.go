package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/codetype/internal/identity"
	"github.com/verte-zerg/codetype/internal/store"
)

var loginSetPassword bool

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in so results are saved",
		Args:  cobra.ExactArgs(1),
		RunE:  runLoginCmd,
	}
	cmd.Flags().BoolVar(&loginSetPassword, "set-password", false, "set the password used by the web API (read from stdin)")
	return cmd
}

func runLoginCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	defer closeQuietly(st)

	provider, err := newProvider(fileCfg, st)
	if err != nil {
		return err
	}
	ident, err := provider.SignIn(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}
	if loginSetPassword {
		password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if err := setPassword(cmd.Context(), st, ident.UserID, password); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (until %s)\n",
		ident.Username, ident.ExpiresAt.Local().Format(time.DateOnly))
	return err
}

// readPassword prompts without echo on a terminal, otherwise it reads the
// first line of in.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		_, _ = fmt.Fprint(prompt, "Password: ")
		raw, err := term.ReadPassword(int(file.Fd()))
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func setPassword(ctx context.Context, st *store.Store, userID, password string) error {
	hash, err := identity.HashPassword(password)
	if err != nil {
		return err
	}
	if err := st.SetPasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE:  runLogoutCmd,
	}
}

func runLogoutCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	defer closeQuietly(st)

	provider, err := newProvider(fileCfg, st)
	if err != nil {
		return err
	}
	if err := provider.SignOut(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	logErrln("Signed out")
	return nil
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE:  runWhoamiCmd,
	}
}

func runWhoamiCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), fileCfg)
	if err != nil {
		return err
	}
	defer closeQuietly(st)

	provider, err := newProvider(fileCfg, st)
	if err != nil {
		return err
	}
	ident, err := provider.Load()
	if err != nil {
		return fmt.Errorf("failed to load identity: %w", err)
	}
	if ident == nil {
		return fmt.Errorf("not signed in (run: codetype login <username>)")
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ident.Username, ident.UserID)
	return err
}
