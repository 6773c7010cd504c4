package cmd

import (
	"fmt"
	"runtime"

	"github.com/nautacli/nauta/cmd/common"
	"github.com/urfave/cli"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var debugMode bool

var globalFlags = []cli.Flag{
	cli.BoolFlag{
		Name:        "debug, d",
		Usage:       "print gateway requests and write them to nauta.log",
		Destination: &debugMode,
	},
}

func Execute(args []string, bArgs BuildArgs) error {
	app := cli.App{
		Name:                  "nauta",
		HelpName:              "nauta",
		Usage:                 "Log in and out of the Nauta captive portal.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "nauta [--debug] <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:                   "up",
				Usage:                  "log in and keep the session open",
				Action:                 up,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            UpDescription,
				UsageText:              "up [user] [password] [--session-time 1h] [--batch]",
				UseShortOptionHandling: true,
				Flags:                  upFlags,
			},
			{
				Name:               "down",
				Usage:              "close the open session",
				Action:             down,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        DownDescription,
				Flags:              downFlags,
			},
			{
				Name:               "status",
				Aliases:            []string{"s"},
				Usage:              "show whether a session is open and the network reachable",
				Action:             status,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        StatusDescription,
			},
			{
				Name:   "is-logged-in",
				Usage:  "print whether a session record is saved",
				Action: isLoggedIn,
			},
			{
				Name:   "is-online",
				Usage:  "print whether the network is open",
				Action: isOnline,
			},
			{
				Name:               "info",
				Aliases:            []string{"i"},
				Usage:              "show remaining time and credit of an account",
				Action:             info,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Description:        InfoDescription,
				UsageText:          "info [user] [password]",
			},
			{
				Name:                   "run-connected",
				Usage:                  "run a command while logged in",
				Action:                 runConnected,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            RunConnectedDescription,
				UsageText:              "run-connected [-u user] [-p password] -- command [args...]",
				UseShortOptionHandling: true,
				SkipArgReorder:         true,
				Flags:                  runFlags,
			},
			{
				Name:               "users",
				Aliases:            []string{"u"},
				Usage:              "manage stored accounts",
				Description:        UsersDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             usersList,
				Subcommands: []cli.Command{
					{
						Name:      "add",
						Usage:     "store an account",
						UsageText: "users add <user> [password]",
						Action:    usersAdd,
					},
					{
						Name:      "set-default",
						Usage:     "use an account when none is given",
						UsageText: "users set-default <user>",
						Action:    usersSetDefault,
					},
					{
						Name:      "set-password",
						Usage:     "change the stored password of an account",
						UsageText: "users set-password <user> [password]",
						Action:    usersSetPassword,
					},
					{
						Name:      "remove",
						Aliases:   []string{"rm"},
						Usage:     "delete an account",
						UsageText: "users remove <user>",
						Action:    usersRemove,
					},
					{
						Name:   "list",
						Usage:  "list stored accounts",
						Action: usersList,
					},
				},
			},
			{
				Name:                   "connections",
				Aliases:                []string{"c"},
				Usage:                  "display connection history",
				Action:                 connections,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				Description:            ConnectionsDescription,
				UseShortOptionHandling: true,
				Flags:                  connFlags,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of nauta",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
