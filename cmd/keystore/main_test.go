package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/burnreg/burnreg/identity"
)

func TestImportListShow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(identity.PasswordEnv, "secret")
	t.Setenv(identity.MnemonicEnv("w2"),
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")

	_, err := newParser().ParseArgs([]string{"--keystoredir", dir, "import", "w2"})
	require.NoError(t, err)
	_, err = newParser().ParseArgs([]string{"--keystoredir", dir, "generate", "w1"})
	require.NoError(t, err)

	labels, err := identity.NewKeystore(dir, identity.StaticPassword([]byte("secret"))).List()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"w1", "w2"}, labels)

	_, err = newParser().ParseArgs([]string{"--keystoredir", dir, "show", "w2"})
	require.NoError(t, err)

	_, err = newParser().ParseArgs([]string{"--keystoredir", dir, "show", "missing"})
	require.ErrorIs(t, err, identity.ErrNotFound)
}
