// Package types defines the records kept by credman.
package types

// User is a stored Nauta account.
type User struct {
	// Name is the full account name, e.g. "alice@nauta.com.cu".
	Name string
	// Password is the clear-text password; it is encrypted at rest.
	Password string
	// Default is true for the account used when none is named.
	Default bool
}
