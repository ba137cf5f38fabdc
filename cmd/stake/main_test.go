package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const daiWETHConfig = `
pools:
  - address: "0xa478c2975ab1ea89e8196811f51a7b7ade33eb11"
    rewards_address: "0x9A0A9D2b5a7C3F1a2d1B6E1d3C5e0a8F7b6D4c21"
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "stake", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().String("config", "", "config file path")
	root.AddCommand(newResolveCmd(), newConnectorsCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(daiWETHConfig), 0o644))
	return path
}

func TestResolveByTokens(t *testing.T) {
	cfg := writeConfig(t)
	out, err := execute(t, "resolve", "--config", cfg, "--log-level", "error",
		"--token-a", "0x6B175474E89094C44Da98b954EedeAC495271d0F", "--token-b", "ETH")
	require.NoError(t, err)

	var got resolveOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.True(t, got.Found)
	require.Equal(t, "0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11", got.Pair)
	require.Equal(t, "0x9A0A9D2b5a7C3F1a2d1B6E1d3C5e0a8F7b6D4c21", got.RewardsAddress)
	require.Equal(t, "case-insensitive", got.Policy)
}

func TestResolveExactPolicy(t *testing.T) {
	cfg := writeConfig(t)
	out, err := execute(t, "resolve", "--config", cfg, "--log-level", "error", "--exact",
		"--pair", "0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11")
	require.NoError(t, err)

	var got resolveOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.False(t, got.Found)
	require.Equal(t, "exact", got.Policy)
}

func TestResolveRequiresInput(t *testing.T) {
	_, err := execute(t, "resolve", "--config", writeConfig(t), "--log-level", "error")
	require.ErrorContains(t, err, "--pair")
}

func TestConnectorsListing(t *testing.T) {
	out, err := execute(t, "connectors", "--config", writeConfig(t), "--log-level", "error",
		"--rpc", "http://localhost:8545", "--chain-id", "4")
	require.NoError(t, err)

	var got []connectorOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 4)

	serves := map[string]bool{}
	for _, c := range got {
		serves[string(c.Kind)] = c.ServesChain
	}
	require.False(t, serves["injected"], "injected has no path configured")
	require.False(t, serves["walletlink"])
	require.False(t, serves["walletconnect"])
	require.True(t, serves["network"])
}
