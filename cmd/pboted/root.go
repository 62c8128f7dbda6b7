package main

import "github.com/spf13/cobra"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pboted",
		Short: "pboted is a peer node for a serverless, anonymity-network-resident email system",
		Long: `pboted peers cooperatively store and exchange encrypted email through a
Kademlia-style distributed hash table layered on an overlay network.
Each node holds index, encrypted-email and directory-entry content and
participates in peer discovery, storage, retrieval and deletion.`,
	}
	cmd.AddCommand(newRunCommand(), newVersionCommand())
	return cmd
}
