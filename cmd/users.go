package cmd

import (
	"errors"
	"fmt"

	"github.com/nautacli/nauta/cmd/common"
	"github.com/nautacli/nauta/pkg/credman"
	"github.com/urfave/cli"
)

var errNoUserName = errors.New("no user name given")

// withUsers opens the users database for the duration of fn.
func withUsers(ctx *cli.Context, action string, fn func(*credman.Manager) error) error {
	env, err := setupEnv()
	if err != nil {
		return runtimeErr(ctx, "users", "setup", err)
	}
	defer env.Close()
	m, err := env.openUsers()
	if err != nil {
		return runtimeErr(ctx, "users", "open", err)
	}
	defer m.Close()
	if err := fn(m); err != nil {
		return runtimeErr(ctx, "users", action, err)
	}
	return nil
}

func usersAdd(ctx *cli.Context) error {
	name := ctx.Args().Get(0)
	if name == "" {
		return common.PrintErrWithCmdHelp(ctx, errNoUserName)
	}
	return withUsers(ctx, "add", func(m *credman.Manager) error {
		password, err := passwordFor(name, ctx.Args().Get(1))
		if err != nil {
			return err
		}
		if err := m.Add(name, password); err != nil {
			return err
		}
		fmt.Printf("Added %s\n", name)
		return nil
	})
}

func usersSetDefault(ctx *cli.Context) error {
	name := ctx.Args().Get(0)
	if name == "" {
		return common.PrintErrWithCmdHelp(ctx, errNoUserName)
	}
	return withUsers(ctx, "set_default", func(m *credman.Manager) error {
		if err := m.SetDefault(name); err != nil {
			return err
		}
		fmt.Printf("%s is now the default account\n", name)
		return nil
	})
}

func usersSetPassword(ctx *cli.Context) error {
	name := ctx.Args().Get(0)
	if name == "" {
		return common.PrintErrWithCmdHelp(ctx, errNoUserName)
	}
	return withUsers(ctx, "set_password", func(m *credman.Manager) error {
		password, err := passwordFor(name, ctx.Args().Get(1))
		if err != nil {
			return err
		}
		if err := m.SetPassword(name, password); err != nil {
			return err
		}
		fmt.Printf("Password of %s updated\n", name)
		return nil
	})
}

func usersRemove(ctx *cli.Context) error {
	name := ctx.Args().Get(0)
	if name == "" {
		return common.PrintErrWithCmdHelp(ctx, errNoUserName)
	}
	return withUsers(ctx, "remove", func(m *credman.Manager) error {
		if err := m.Remove(name); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", name)
		return nil
	})
}

func usersList(ctx *cli.Context) error {
	return withUsers(ctx, "list", func(m *credman.Manager) error {
		users, err := m.List()
		if err != nil {
			return err
		}
		if len(users) == 0 {
			fmt.Println(`nauta: no stored accounts, add one with "nauta users add <user>"`)
			return nil
		}
		txt := "Stored accounts:"
		txt += "\n\n--------------------------------------------"
		txt += "\n|Num|             User             |Default|"
		txt += "\n|---|------------------------------|-------|"
		for i, u := range users {
			def := ""
			if u.Default {
				def = "*"
			}
			txt += fmt.Sprintf("\n|%s|%s|%s|",
				common.Beaut(fmt.Sprint(i+1), 3),
				fit(u.Name, 30),
				common.Beaut(def, 7),
			)
		}
		txt += "\n--------------------------------------------"
		fmt.Println(txt)
		return nil
	})
}

// fit centers s in a cell n wide, cutting it short with "..." when it
// does not fit.
func fit(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return common.Beaut(s, n)
}
