package main

import (
	"github.com/spf13/cobra"

	"linkStake/internal/connector"
)

type connectorOutput struct {
	Kind              connector.Kind `json:"kind"`
	SupportedChainIDs []uint64       `json:"supported_chain_ids"`
	ServesChain       bool           `json:"serves_configured_chain"`
}

func newConnectorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connectors",
		Short: "List wallet connectors and the chains they serve",
		RunE:  runConnectors,
	}
	addChainFlags(cmd.Flags())
	return cmd
}

func runConnectors(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	var out []connectorOutput
	for _, kind := range e.registry.Kinds() {
		c, _ := e.registry.Get(kind)
		_, endpointErr := c.Endpoint(e.cfg.ChainID)
		out = append(out, connectorOutput{
			Kind:              kind,
			SupportedChainIDs: c.SupportedChainIDs(),
			ServesChain:       endpointErr == nil,
		})
	}
	return printJSON(cmd.OutOrStdout(), out)
}
