package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/escuelalink/parent-gateway/internal/tools/linkcheck"
	"github.com/escuelalink/parent-gateway/internal/tools/migrate"
	"github.com/escuelalink/parent-gateway/internal/tools/permcheck"
)

func main() {
	root := &cobra.Command{Use: "gatewayctl", Short: "Operational checks for the parent gateway"}
	root.AddCommand(linkcheck.NewCommand())
	root.AddCommand(migrate.NewCommand())
	root.AddCommand(permcheck.NewCommand())
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
