package portalctl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// PasswordAdmin is the slice of the identity provider used to set
// passwords on behalf of users.
type PasswordAdmin interface {
	AdminResetRequired(ctx context.Context, username string) (bool, error)
	AdminSetPassword(ctx context.Context, username, password string) error
}

// SetPassword sets a permanent password for username. Unless force is
// set, only users awaiting a password change are touched.
func SetPassword(ctx context.Context, idp PasswordAdmin, username, password string, force bool, out io.Writer) error {
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	if !force {
		required, err := idp.AdminResetRequired(ctx, username)
		if err != nil {
			return err
		}
		if !required {
			return fmt.Errorf("user %s is not awaiting a password change (use -force)", username)
		}
	}

	if err := idp.AdminSetPassword(ctx, username, password); err != nil {
		return err
	}
	fmt.Fprintf(out, "Password set for %s\n", username)
	return nil
}

// ReadPassword returns the first line of r without its line ending.
func ReadPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
