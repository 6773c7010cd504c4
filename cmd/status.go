package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli"
)

func status(ctx *cli.Context) error {
	env, err := setupEnv()
	if err != nil {
		return runtimeErr(ctx, "status", "setup", err)
	}
	defer env.Close()

	client, closeHistory, err := env.client("", "", true)
	if err != nil {
		return runtimeErr(ctx, "status", "new_client", err)
	}
	defer closeHistory()

	loggedIn := client.IsLoggedIn()
	online := client.IsConnected(context.Background())
	if loggedIn && client.LoadLastSession() == nil {
		fmt.Printf("Session open:  yes (%s)\n", client.User())
	} else {
		fmt.Printf("Session open:  %s\n", yesNo(loggedIn))
	}
	fmt.Printf("Network open:  %s\n", yesNo(online))
	switch {
	case loggedIn && !online:
		fmt.Println(`The saved session looks closed on the gateway, run "nauta down" to clean it up`)
	case !loggedIn && online:
		fmt.Println("The network is open but no session was started here")
	}
	return nil
}

func isLoggedIn(ctx *cli.Context) error {
	return printFlag(ctx, "is-logged-in", func(env *environment) (bool, error) {
		client, closeHistory, err := env.client("", "", true)
		if err != nil {
			return false, err
		}
		defer closeHistory()
		return client.IsLoggedIn(), nil
	})
}

func isOnline(ctx *cli.Context) error {
	return printFlag(ctx, "is-online", func(env *environment) (bool, error) {
		client, closeHistory, err := env.client("", "", true)
		if err != nil {
			return false, err
		}
		defer closeHistory()
		return client.IsConnected(context.Background()), nil
	})
}

func printFlag(ctx *cli.Context, cmd string, get func(*environment) (bool, error)) error {
	env, err := setupEnv()
	if err != nil {
		return runtimeErr(ctx, cmd, "setup", err)
	}
	defer env.Close()
	v, err := get(env)
	if err != nil {
		return runtimeErr(ctx, cmd, "new_client", err)
	}
	fmt.Println(yesNo(v))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
