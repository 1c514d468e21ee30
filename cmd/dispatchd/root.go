package main

import (
	"github.com/spf13/cobra"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dispatchd",
		Short: "Freight dispatch core: booking rounds, vendor allocation, shipment lifecycle",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "C", "", "path to a dispatchd TOML config file")
	root.AddCommand(newServeCmd())
	root.AddCommand(newTickOnceCmd())
	return root
}
