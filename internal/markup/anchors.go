package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"web_ranker/internal/models"
)

// highlighting elements: everything below them counts as emphasized
var highlighting = map[atom.Atom]bool{
	atom.B:      true,
	atom.Strong: true,
	atom.Em:     true,
	atom.H1:     true,
	atom.H2:     true,
	atom.H3:     true,
	atom.H4:     true,
}

type frame struct {
	node        *html.Node
	highlighted bool
}

// ExtractAnchors walks <body> depth first and returns its anchors in
// document order. Each frame carries whether an ancestor highlights it.
// The subtree of an anchor is not searched for further anchors.
func ExtractAnchors(root *html.Node) []models.Anchor {
	body := findBody(root)
	if body == nil {
		body = root
	}

	var anchors []models.Anchor
	stack := pushChildren(nil, body, false)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := f.node
		if n.Type != html.ElementNode {
			continue
		}
		if n.DataAtom == atom.A {
			if href := strings.TrimSpace(attr(n, "href")); href != "" {
				anchors = append(anchors, models.Anchor{Target: href, Highlighted: f.highlighted})
			}
			continue
		}
		stack = pushChildren(stack, n, f.highlighted || highlighting[n.DataAtom])
	}
	return anchors
}

// pushChildren pushes in reverse so that the first child is popped first.
func pushChildren(stack []frame, n *html.Node, highlighted bool) []frame {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		stack = append(stack, frame{node: c, highlighted: highlighted})
	}
	return stack
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
