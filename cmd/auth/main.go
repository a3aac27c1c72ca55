// Command auth runs the storefront auth service.
package main

import (
	"context"
	"os"

	"github.com/kbukum/storefront/bootstrap"
	"github.com/kbukum/storefront/internal/cli"
)

func main() {
	os.Exit(cli.Main(context.Background(), bootstrap.Auth(), os.Args[1:]))
}
