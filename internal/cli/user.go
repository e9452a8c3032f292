package cli

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/volumod/tracker/internal/auth"
	"github.com/volumod/tracker/internal/record"
	"github.com/volumod/tracker/internal/store"
)

// newUserCmd groups account management subcommands.
func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserListCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var role, fullName string

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}

			password, err := promptPassword()
			if err != nil {
				return err
			}

			// Shell access to the data directory is treated as
			// administrative, so the command acts as a manager.
			admin := auth.Session{UserID: "cli", Role: record.RoleManager}
			u, err := auth.RegisterUser(s, admin, args[0], password, fullName, record.Role(role))
			if err != nil {
				return err
			}
			fmt.Printf("Created %s (%s, %s)\n", u.Username, u.ID, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(record.RoleOperator), "account role (operator, inspector, manager)")
	cmd.Flags().StringVar(&fullName, "name", "", "full name shown on the dashboard")
	return cmd
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			newLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			users, err := store.Load(s, record.Users)
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Printf("%-6s %-12s %-10s %s\n", u.ID, u.Username, u.Role, u.FullName)
			}
			return nil
		},
	}
}

// promptPassword reads a password without echo, with confirmation. When
// stdin is not a terminal (scripts, tests) it reads a single line.
func promptPassword() (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		var password string
		if _, err := fmt.Fscanln(os.Stdin, &password); err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return password, nil
	}

	fmt.Print("Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Print("Confirm: ")
	second, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(first) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}
	return string(first), nil
}
