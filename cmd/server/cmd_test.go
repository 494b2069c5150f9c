package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KevinKickass/HomeGateway/internal/auth"
	"github.com/KevinKickass/HomeGateway/internal/helios"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParamsCommand(t *testing.T) {
	out, err := execute(t, "", "params")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, helios.Default.Len()+1, len(lines))
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, out, "VentilationLevel")
	assert.Contains(t, out, "v00102")
}

func TestHashKeyCommand(t *testing.T) {
	const key = "0123456789abcdef-gateway"

	out, err := execute(t, key+"\n", "hash-key")
	require.NoError(t, err)

	ok, err := auth.NewKeyHasher().VerifyKey(key, strings.TrimSpace(out))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = execute(t, "", "hash-key", "short")
	assert.Error(t, err)
}

func TestWriteCommandRejectsBeforeConnecting(t *testing.T) {
	_, err := execute(t, "", "write", "OutdoorAirTemperature", "12")
	assert.ErrorContains(t, err, "not writable")

	_, err = execute(t, "", "write", "NoSuchParameter", "1")
	assert.ErrorIs(t, err, helios.ErrUnknownParameter)

	_, err = execute(t, "", "write", "VentilationLevel", "turbo")
	assert.Error(t, err)
}
