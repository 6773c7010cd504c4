package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nautacli/nauta/cmd/common"
	"github.com/nautacli/nauta/pkg/nauta"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
)

var (
	sessionTime string
	batchMode   bool
	noLog       bool

	upFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "session-time, t",
			Usage:       "log out after this long, e.g. 1h, 10m or 90 (seconds)",
			Destination: &sessionTime,
		},
		cli.BoolFlag{
			Name:        "batch, b",
			Usage:       "log in and return, leaving the session open",
			Destination: &batchMode,
		},
		noLogFlag,
	}

	noLogFlag = cli.BoolFlag{
		Name:        "no-log",
		Usage:       "do not record the connection in the history",
		Destination: &noLog,
	}
)

var barOutput io.Writer = os.Stderr

var (
	waitTick = DEF_WAIT_TICK
	errExit  = cli.NewExitError("", 1)
	timeNow  = time.Now
)

// runtimeErr prints err in the usual format and makes the process exit
// with status 1.
func runtimeErr(ctx *cli.Context, cmd, action string, err error) error {
	common.PrintRuntimeErr(ctx, cmd, action, err)
	return errExit
}

// parseSessionTime reads a session length given in seconds or as a
// duration such as "1h" or "1h30m". Empty means no limit.
func parseSessionTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	var d time.Duration
	if n, err := strconv.Atoi(s); err == nil {
		d = time.Duration(n) * time.Second
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid session time %q", s)
		}
	}
	if d <= 0 {
		return 0, fmt.Errorf("session time must be positive, got %q", s)
	}
	return d, nil
}

func up(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	limit, err := parseSessionTime(sessionTime)
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	env, err := setupEnv()
	if err != nil {
		return runtimeErr(ctx, "up", "setup", err)
	}
	defer env.Close()

	user, password, err := env.resolveUser(ctx.Args().Get(0), ctx.Args().Get(1))
	if err != nil {
		return runtimeErr(ctx, "up", "credentials", err)
	}
	password, err = passwordFor(user, password)
	if err != nil {
		return runtimeErr(ctx, "up", "credentials", err)
	}
	client, closeHistory, err := env.client(user, password, noLog)
	if err != nil {
		return runtimeErr(ctx, "up", "new_client", err)
	}
	defer closeHistory()

	sctx, stop := setupShutdownHandler()
	defer stop()

	if batchMode {
		return upBatch(ctx, sctx, client)
	}

	start := timeNow()
	err = client.Connected(sctx, func(cctx context.Context) error {
		fmt.Printf("Logged in as %s\n", client.User())
		printRemaining(cctx, client)
		fmt.Println("Press Ctrl+C to log out")
		reason := waitSession(cctx, client, limit)
		fmt.Println(reason)
		return nil
	})
	if err != nil {
		return runtimeErr(ctx, "up", "session", err)
	}
	fmt.Printf("Connected for %s\n", common.FormatDuration(timeNow().Sub(start)))
	printRemaining(context.WithoutCancel(sctx), client)
	return nil
}

func upBatch(ctx *cli.Context, sctx context.Context, client *nauta.Client) error {
	if err := client.Login(sctx); err != nil {
		if client.Session() != nil {
			if derr := client.Dispose(); derr != nil {
				common.PrintRuntimeErr(ctx, "up", "dispose", derr)
			}
		}
		return runtimeErr(ctx, "up", "login", err)
	}
	fmt.Printf("Logged in as %s\n", client.User())
	printRemaining(sctx, client)
	fmt.Println(`Run "nauta down" to log out`)
	return nil
}

// waitSession blocks until ctx is canceled, the session time runs out or
// the saved session disappears, and says which one happened.
func waitSession(ctx context.Context, client *nauta.Client, limit time.Duration) string {
	p := mpb.NewWithContext(ctx, mpb.WithOutput(barOutput), mpb.WithWidth(40))
	bar := common.InitSessionBar(p, client.User(), limit)
	defer p.Wait()
	defer bar.Abort(false)

	start := timeNow()
	ticker := time.NewTicker(waitTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "Interrupted, logging out"
		case <-ticker.C:
		}
		elapsed := timeNow().Sub(start)
		if limit > 0 {
			bar.SetCurrent(int64(min(elapsed, limit) / time.Second))
			if elapsed >= limit {
				return "Session time is up, logging out"
			}
		}
		if !client.IsLoggedIn() {
			return "Session was closed by another process"
		}
	}
}

func printRemaining(ctx context.Context, client *nauta.Client) {
	left, err := client.RemainingTime(ctx)
	if err != nil {
		fmt.Printf("Remaining time: unknown (%v)\n", err)
		return
	}
	fmt.Printf("Remaining time: %s\n", strings.TrimSpace(left))
}
