package cmd

import (
	"errors"
	"fmt"

	"github.com/nautacli/nauta/pkg/nauta"
	"github.com/urfave/cli"
)

var downFlags = []cli.Flag{noLogFlag}

func down(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	env, err := setupEnv()
	if err != nil {
		return runtimeErr(ctx, "down", "setup", err)
	}
	defer env.Close()

	client, closeHistory, err := env.client("", "", noLog)
	if err != nil {
		return runtimeErr(ctx, "down", "new_client", err)
	}
	defer closeHistory()

	if err := client.LoadLastSession(); err != nil {
		if errors.Is(err, nauta.ErrSessionNotFound) {
			fmt.Println("No open session")
			return nil
		}
		return runtimeErr(ctx, "down", "load_session", err)
	}

	sctx, stop := setupShutdownHandler()
	defer stop()
	if err := client.Logout(sctx); err != nil {
		return runtimeErr(ctx, "down", "logout", err)
	}
	fmt.Printf("Logged out %s\n", client.User())
	return nil
}
