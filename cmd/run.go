package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/nautacli/nauta/cmd/common"
	"github.com/urfave/cli"
)

var (
	runUser     string
	runPassword string

	runFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "user, u",
			Usage:       "account to log in with (default: the stored default)",
			Destination: &runUser,
		},
		cli.StringFlag{
			Name:        "password, p",
			Usage:       "password of the account (default: the stored one)",
			Destination: &runPassword,
		},
		noLogFlag,
	}
)

var errNoCommand = errors.New("no command given")

// runCommandContext starts argv with the standard streams attached and
// waits for it. The process is killed when ctx is canceled.
var runCommandContext = func(ctx context.Context, argv []string) error {
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

func runConnected(ctx *cli.Context) error {
	argv := []string(ctx.Args())
	if len(argv) == 0 {
		return common.PrintErrWithCmdHelp(ctx, errNoCommand)
	}
	env, err := setupEnv()
	if err != nil {
		return runtimeErr(ctx, "run-connected", "setup", err)
	}
	defer env.Close()

	user, password, err := env.resolveUser(runUser, runPassword)
	if err != nil {
		return runtimeErr(ctx, "run-connected", "credentials", err)
	}
	password, err = passwordFor(user, password)
	if err != nil {
		return runtimeErr(ctx, "run-connected", "credentials", err)
	}
	client, closeHistory, err := env.client(user, password, noLog)
	if err != nil {
		return runtimeErr(ctx, "run-connected", "new_client", err)
	}
	defer closeHistory()

	sctx, stop := setupShutdownHandler()
	defer stop()

	var exitCode int
	err = client.Connected(sctx, func(cctx context.Context) error {
		env.log.Debug("running %v", argv)
		rerr := runCommandContext(cctx, argv)
		var ee *exec.ExitError
		if errors.As(rerr, &ee) && cctx.Err() == nil {
			exitCode = ee.ExitCode()
			return nil
		}
		if rerr != nil && cctx.Err() != nil {
			return cctx.Err()
		}
		return rerr
	})
	if err != nil {
		return runtimeErr(ctx, "run-connected", "run", err)
	}
	if exitCode != 0 {
		fmt.Fprintf(os.Stderr, "nauta: %s exited with status %d\n", argv[0], exitCode)
		return cli.NewExitError("", exitCode)
	}
	return nil
}
