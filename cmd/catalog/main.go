// Command catalog runs the storefront catalog service and drains the
// "example" topic alongside it.
package main

import (
	"context"
	"os"

	"github.com/kbukum/storefront/bootstrap"
	"github.com/kbukum/storefront/internal/cli"
)

func main() {
	os.Exit(cli.Main(context.Background(), bootstrap.Catalog(), os.Args[1:]))
}
