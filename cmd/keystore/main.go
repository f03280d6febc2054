// Command keystore manages the sealed identities burnreg races with.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"golang.org/x/term"

	"github.com/burnreg/burnreg/config"
	"github.com/burnreg/burnreg/identity"
)

type options struct {
	Dir string `long:"keystoredir" description:"Directory holding the sealed identities"`
}

type labelArg struct {
	Label string `positional-arg-name:"label"`
}

type importCommand struct {
	Args labelArg `positional-args:"yes" required:"yes"`
}

type generateCommand struct {
	Args labelArg `positional-args:"yes" required:"yes"`
}

type showCommand struct {
	Args labelArg `positional-args:"yes" required:"yes"`
}

type listCommand struct{}

var opts = options{Dir: config.DefaultConfig().KeystoreDir}

func keystore() *identity.Keystore {
	return identity.NewKeystore(opts.Dir, identity.EnvOrPrompt(os.Stderr))
}

// Execute imports the mnemonic found in the label's environment variable,
// or typed at the prompt.
func (c *importCommand) Execute([]string) error {
	label := c.Args.Label
	mnemonic, ok := os.LookupEnv(identity.MnemonicEnv(label))
	if !ok {
		var err error
		mnemonic, err = readSecret(os.Stderr, "Mnemonic: ")
		if err != nil {
			return err
		}
	}
	id, err := identity.FromMnemonic(label, mnemonic)
	if err != nil {
		return err
	}
	if err := keystore().Import(id); err != nil {
		return err
	}
	return printIdentity(os.Stdout, id)
}

func (c *generateCommand) Execute([]string) error {
	mnemonic, err := identity.GenerateMnemonic()
	if err != nil {
		return err
	}
	id, err := identity.FromMnemonic(c.Args.Label, mnemonic)
	if err != nil {
		return err
	}
	if err := keystore().Import(id); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "mnemonic: %s\n", mnemonic)
	fmt.Fprintln(os.Stdout, "write the mnemonic down, it is the only backup of this identity")
	return printIdentity(os.Stdout, id)
}

func (c *showCommand) Execute([]string) error {
	id, err := keystore().Load(c.Args.Label)
	if err != nil {
		return err
	}
	return printIdentity(os.Stdout, id)
}

func (c *listCommand) Execute([]string) error {
	labels, err := keystore().List()
	if err != nil {
		return err
	}
	for _, label := range labels {
		fmt.Fprintln(os.Stdout, label)
	}
	return nil
}

func printIdentity(w io.Writer, id *identity.Identity) error {
	_, err := fmt.Fprintf(w, "%s\n  coldkey: %s\n  hotkey:  %s\n", id.Label(), id.ColdAddress(), id.HotAddress())
	return err
}

func readSecret(w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal to read the secret from")
	}
	fmt.Fprint(w, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

func newParser() *flags.Parser {
	parser := flags.NewParser(&opts, flags.Default)
	_, _ = parser.AddCommand("import", "Seal an identity derived from a mnemonic", "", &importCommand{})
	_, _ = parser.AddCommand("generate", "Create an identity from a fresh mnemonic", "", &generateCommand{})
	_, _ = parser.AddCommand("show", "Print the addresses of an identity", "", &showCommand{})
	_, _ = parser.AddCommand("list", "List the sealed identities", "", &listCommand{})
	return parser
}

func main() {
	// flags.Default prints every error, including the ones of Execute.
	if _, err := newParser().Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}
