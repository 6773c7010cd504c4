package cmd

import "time"

const (
	// DEF_WAIT_TICK is how often the interactive session checks its time
	// limit and whether another process closed it.
	DEF_WAIT_TICK = time.Second
)

const DESCRIPTION = `
nauta logs this machine in and out of the Nauta captive portal. It keeps
the session on disk so that a later "nauta down", from any shell, can
close it, and it retries the logout until the gateway confirms it.
`

const (
	UpDescription = `The up command logs in with the given account, or with the
default stored account when none is given. A user name may be
a prefix of a stored account.

By default up stays in the foreground until Ctrl+C, until the
session time runs out or until "nauta down" closes the session
from another shell, and then logs out. With --batch it logs in
and returns, leaving the session open.

Example:
        nauta up
        nauta up alice --session-time 1h
        nauta up alice@nauta.com.cu s3cret --batch

`
	DownDescription = `The down command closes the session saved by a previous
"nauta up --batch" or by an interrupted foreground session.
The logout is retried while the network fails.

Example:
        nauta down

`
	StatusDescription = `The status command shows whether a session record is saved
on this machine and whether the network is open. The two can
disagree when a session was closed on the gateway side.

Example:
        nauta status

`
	InfoDescription = `The info command shows the remaining time of an account and,
when the network is not open, its credit.

Example:
        nauta info
        nauta info alice

`
	RunConnectedDescription = `The run-connected command logs in, runs the given command and
logs out once the command exits, even when it fails or is
interrupted.

Example:
        nauta run-connected -u alice -- apt-get update

`
	UsersDescription = `The users command manages the stored accounts. Passwords are
encrypted with a key kept in the system keyring.

Example:
        nauta users add alice@nauta.com.cu
        nauta users set-default alice@nauta.com.cu
        nauta users list

`
	ConnectionsDescription = `The connections command displays the login history and, with
--summary, the time spent connected per account and month.

Example:
        nauta connections
        nauta connections --summary

`
)
