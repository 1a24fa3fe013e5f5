package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/cove-chat/cove/internal/app"
	"github.com/cove-chat/cove/internal/session"
)

func main() {
	accountFlag := flag.String("account", "", "account name (overrides config default)")
	flag.Parse()

	account := session.Resolve(*accountFlag)
	if err := session.ValidateName(account); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fx.New(
		app.Module(app.Params{Account: account}),
		fx.NopLogger,
	).Run()
}
