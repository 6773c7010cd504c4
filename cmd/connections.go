package cmd

import (
	"fmt"

	"github.com/nautacli/nauta/cmd/common"
	"github.com/nautacli/nauta/internal/history"
	"github.com/urfave/cli"
)

const entryTimeLayout = "2006-01-02 15:04:05"

var (
	showSummary bool

	connFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "summary, s",
			Usage:       "show the time connected per account and month (default: false)",
			Destination: &showSummary,
		},
	}
)

func connections(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	env, err := setupEnv()
	if err != nil {
		return runtimeErr(ctx, "connections", "setup", err)
	}
	defer env.Close()
	h, err := env.openHistory()
	if err != nil {
		return runtimeErr(ctx, "connections", "open", err)
	}
	defer h.Close()
	entries, err := h.List()
	if err != nil {
		return runtimeErr(ctx, "connections", "get_list", err)
	}
	if len(entries) == 0 {
		fmt.Println("nauta: no connections recorded")
		return nil
	}
	if showSummary {
		fmt.Println(summaryTable(history.MonthlySummary(entries)))
		return nil
	}
	fmt.Println(entriesTable(entries))
	return nil
}

func entriesTable(entries []history.Entry) string {
	txt := "Here are your connections:"
	txt += "\n\n-----------------------------------------------------------------------------------------"
	txt += "\n|Num|          User          |        Started        |         Ended         |  Length  |"
	txt += "\n|---|------------------------|-----------------------|-----------------------|----------|"
	for i, e := range entries {
		end, length := "open", "-"
		if e.End != nil {
			end = e.End.Format(entryTimeLayout)
			length = common.FormatDuration(e.Duration())
		}
		txt += fmt.Sprintf("\n|%s|%s|%s|%s|%s|",
			common.Beaut(fmt.Sprint(i+1), 3),
			fit(e.User, 24),
			common.Beaut(e.Start.Format(entryTimeLayout), 23),
			common.Beaut(end, 23),
			common.Beaut(length, 10),
		)
	}
	txt += "\n-----------------------------------------------------------------------------------------"
	return txt
}

func summaryTable(usage []history.MonthlyUsage) string {
	if len(usage) == 0 {
		return "nauta: no finished connections recorded"
	}
	txt := "Time connected per month:"
	txt += "\n\n------------------------------------------------------------"
	txt += "\n|  Month  |          User          | Connections |  Total  |"
	txt += "\n|---------|------------------------|-------------|---------|"
	for _, u := range usage {
		txt += fmt.Sprintf("\n|%s|%s|%s|%s|",
			common.Beaut(fmt.Sprintf("%d-%02d", u.Year, u.Month), 9),
			fit(u.User, 24),
			common.Beaut(fmt.Sprint(u.Connections), 13),
			common.Beaut(common.FormatDuration(u.Total), 9),
		)
	}
	txt += "\n------------------------------------------------------------"
	return txt
}
