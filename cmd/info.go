package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli"
)

func info(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	env, err := setupEnv()
	if err != nil {
		return runtimeErr(ctx, "info", "setup", err)
	}
	defer env.Close()

	user, password, err := env.resolveUser(ctx.Args().Get(0), ctx.Args().Get(1))
	if err != nil {
		return runtimeErr(ctx, "info", "credentials", err)
	}
	client, closeHistory, err := env.client(user, password, true)
	if err != nil {
		return runtimeErr(ctx, "info", "new_client", err)
	}
	defer closeHistory()
	if client.IsLoggedIn() {
		if err := client.LoadLastSession(); err != nil {
			env.log.Debug("saved session unusable: %v", err)
		}
	}

	rctx := context.Background()
	fmt.Printf("User: %s\n", user)
	left, err := client.RemainingTime(rctx)
	if err != nil {
		return runtimeErr(ctx, "info", "remaining_time", err)
	}
	fmt.Printf("Remaining time: %s\n", strings.TrimSpace(left))

	if client.IsConnected(rctx) {
		fmt.Println("Credit: not available while online")
		return nil
	}
	if password == "" {
		fmt.Println("Credit: unknown, no password stored for this account")
		return nil
	}
	credit, err := client.UserCredit(rctx)
	if err != nil {
		return runtimeErr(ctx, "info", "credit", err)
	}
	fmt.Printf("Credit: %s\n", credit)
	return nil
}
