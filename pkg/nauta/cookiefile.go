package nauta

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const netscapeHeader = "# Netscape HTTP Cookie File"

// WriteCookieFile writes cookies in the Netscape cookie-file format used by
// curl, wget and browsers' cookies.txt exports. Session cookies get an
// expiry of 0.
func WriteCookieFile(w io.Writer, cookies []Cookie) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, netscapeHeader)
	fmt.Fprintln(bw, "# This file was generated by nauta. Do not edit.")
	fmt.Fprintln(bw)
	for _, c := range cookies {
		domain := c.Domain
		if c.HttpOnly {
			domain = "#HttpOnly_" + domain
		}
		var expiry int64
		if !c.Expiry.IsZero() {
			expiry = c.Expiry.Unix()
		}
		fmt.Fprintf(bw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			domain,
			boolField(!c.HostOnly),
			c.Path,
			boolField(c.Secure),
			expiry,
			c.Name,
			c.Value,
		)
	}
	return bw.Flush()
}

// ParseCookieFile reads cookies in the Netscape format.
// Lines starting with # are skipped, except #HttpOnly_ which sets the HttpOnly flag.
// Malformed lines and cookies already expired at now are skipped.
func ParseCookieFile(r io.Reader, now time.Time) ([]Cookie, error) {
	var cookies []Cookie

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		httpOnly := false
		if strings.HasPrefix(line, "#HttpOnly_") {
			httpOnly = true
			line = line[len("#HttpOnly_"):]
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			continue
		}
		expiry, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			continue
		}

		c := Cookie{
			Domain:   fields[0],
			HostOnly: !strings.EqualFold(fields[1], "TRUE"),
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Name:     fields[5],
			Value:    fields[6],
			HttpOnly: httpOnly,
		}
		if expiry > 0 {
			c.Expiry = time.Unix(expiry, 0)
		}
		if c.expired(now) {
			continue
		}
		cookies = append(cookies, c)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	return cookies, nil
}

func boolField(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}
