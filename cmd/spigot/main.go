package main

import (
	"context"
	"os"

	"github.com/SmitUplenchwar2687/Spigot/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
