package gateway

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"order-reconciliation/internal/domain"
)

var formTokenPattern = regexp.MustCompile(`var axsrft = "(.*?)";`)

// Column positions of the legacy result table.
const (
	legacyColOrderID        = 2
	legacyColInterfaceID    = 4
	legacyColInterfaceLogID = 5
	legacyColEventMessage   = 6
)

// LegacyResultParser turns a legacy portal response into an order status.
type LegacyResultParser interface {
	Parse(orderID string, body []byte) (domain.LegacyOrder, error)
}

// TableResultParser reads the last row of the first result table body.
type TableResultParser struct{}

// Parse implements LegacyResultParser. Any deviation from the expected
// table layout is reported as *domain.ParseError.
func (TableResultParser) Parse(orderID string, body []byte) (domain.LegacyOrder, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return domain.LegacyOrder{}, &domain.ParseError{OrderID: orderID, Reason: err.Error()}
	}

	tbody := findFirst(doc, "tbody")
	if tbody == nil {
		tbody = tableFragmentBody(body)
	}
	if tbody == nil {
		return domain.LegacyOrder{}, &domain.ParseError{OrderID: orderID, Reason: "result table not found"}
	}
	rows := findAll(tbody, "tr")
	if len(rows) == 0 {
		return domain.LegacyOrder{}, &domain.ParseError{OrderID: orderID, Reason: "result table has no rows"}
	}
	cells := findAll(rows[len(rows)-1], "td")
	if len(cells) <= legacyColEventMessage {
		return domain.LegacyOrder{}, &domain.ParseError{
			OrderID: orderID,
			Reason:  fmt.Sprintf("result row has %d columns, want at least %d", len(cells), legacyColEventMessage+1),
		}
	}

	return domain.LegacyOrder{
		OrderID:        textContent(cells[legacyColOrderID]),
		InterfaceID:    textContent(cells[legacyColInterfaceID]),
		InterfaceLogID: textContent(cells[legacyColInterfaceLogID]),
		EventMessage:   textContent(cells[legacyColEventMessage]),
	}, nil
}

// tableFragmentBody parses a partial update that carries bare table rows,
// which a full document parse would discard.
func tableFragmentBody(body []byte) *html.Node {
	table := &html.Node{Type: html.ElementNode, Data: "table", DataAtom: atom.Table}
	nodes, err := html.ParseFragment(bytes.NewReader(body), table)
	if err != nil {
		return nil
	}
	for _, n := range nodes {
		if found := findFirst(n, "tbody"); found != nil {
			return found
		}
	}
	return nil
}

// extractFormToken finds the anti-forgery token assigned in an inline script
// of the bootstrap page.
func extractFormToken(body []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", &domain.ParseError{Reason: err.Error()}
	}
	for _, script := range findAll(doc, "script") {
		if m := formTokenPattern.FindStringSubmatch(textContent(script)); m != nil {
			return m[1], nil
		}
	}
	return "", &domain.ParseError{Reason: "form token not found in bootstrap page"}
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
