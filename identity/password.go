package identity

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

const PasswordEnv = "BURNREG_KEYSTORE_PASSWORD"

var ErrNoPassword = errors.New("no keystore password: set " + PasswordEnv + " or run from a terminal")

type PasswordFunc func() ([]byte, error)

// StaticPassword always returns pw.
func StaticPassword(pw []byte) PasswordFunc {
	return func() ([]byte, error) { return pw, nil }
}

// EnvOrPrompt reads the password from PasswordEnv, falling back to an
// interactive prompt written to w when stdin is a terminal.
func EnvOrPrompt(w io.Writer) PasswordFunc {
	return func() ([]byte, error) {
		if pw, ok := os.LookupEnv(PasswordEnv); ok {
			return []byte(pw), nil
		}
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return nil, ErrNoPassword
		}
		fmt.Fprint(w, "Keystore password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(w)
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		return pw, nil
	}
}
