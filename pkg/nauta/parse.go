package nauta

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Everything that depends on the gateway's markup lives in this file.

const loginFormID = "formulario"

var (
	reAlertReason   = regexp.MustCompile(`alert\("(?P<reason>[^"]*?)"\)`)
	reAttributeUUID = regexp.MustCompile(`ATTRIBUTE_UUID=(\w+)&CSRFHW=`)
)

// creditPath encodes "#sessioninfo > tbody:nth-child(1) > tr:nth-child(2) > td:nth-child(2)".
var creditPath = []struct {
	tag atom.Atom
	nth int
}{
	{atom.Tbody, 1},
	{atom.Tr, 2},
	{atom.Td, 2},
}

func parseHTML(body string) (*html.Node, error) {
	return html.Parse(strings.NewReader(body))
}

// formInputs maps the name of every named <input> below n to its value.
// Inputs without a value map to "".
func formInputs(n *html.Node) map[string]string {
	inputs := make(map[string]string)
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && c.DataAtom == atom.Input {
			if name, ok := attr(c, "name"); ok {
				value, _ := attr(c, "value")
				inputs[name] = value
			}
		}
		return true
	})
	return inputs
}

// loginForm returns the gateway's login form and its action attribute.
func loginForm(doc *html.Node) (form *html.Node, action string) {
	form = elementByID(doc, loginFormID)
	if form == nil || form.DataAtom != atom.Form {
		return nil, ""
	}
	action, _ = attr(form, "action")
	return form, action
}

// loginFailureReason extracts the alert("...") message from the last
// <script> of a rejected login page. It returns "" when there is none.
func loginFailureReason(doc *html.Node) string {
	var last *html.Node
	walk(doc, func(c *html.Node) bool {
		if c.Type == html.ElementNode && c.DataAtom == atom.Script {
			last = c
		}
		return true
	})
	if last == nil {
		return ""
	}
	m := reAlertReason.FindStringSubmatch(textContent(last))
	if m == nil {
		return ""
	}
	return m[reAlertReason.SubexpIndex("reason")]
}

// attributeUUID extracts the session UUID from a successful login page.
// Some gateway versions omit it, in which case "" is returned.
func attributeUUID(body string) string {
	m := reAttributeUUID.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return m[1]
}

// creditCell returns the trimmed text of the account credit cell.
func creditCell(doc *html.Node) (string, bool) {
	n := elementByID(doc, "sessioninfo")
	if n == nil {
		return "", false
	}
	for _, step := range creditPath {
		n = nthElementChild(n, step.nth)
		if n == nil || n.DataAtom != step.tag {
			return "", false
		}
	}
	return strings.TrimSpace(textContent(n)), true
}

func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

func elementByID(doc *html.Node, id string) *html.Node {
	var found *html.Node
	walk(doc, func(c *html.Node) bool {
		if c.Type == html.ElementNode {
			if v, ok := attr(c, "id"); ok && v == id {
				found = c
				return false
			}
		}
		return true
	})
	return found
}

// nthElementChild mirrors :nth-child(k), counting element siblings only.
func nthElementChild(n *html.Node, k int) *html.Node {
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		i++
		if i == k {
			return c
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}
