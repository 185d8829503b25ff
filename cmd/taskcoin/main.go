// Command taskcoin is a gamified task tracker: finished tasks earn coins
// that buy rewards.
package main

import (
	"os"

	"github.com/roach88/taskcoin/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
