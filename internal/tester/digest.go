package tester

import (
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageDigest is a coarse structural summary of a captured DOM snapshot,
// used as diagnostic context when a replay verdict diverges.
type PageDigest struct {
	Title   string
	Inputs  int
	Buttons int
	Links   int
}

func (d PageDigest) String() string {
	return fmt.Sprintf("title=%q inputs=%d buttons=%d links=%d", d.Title, d.Inputs, d.Buttons, d.Links)
}

// DigestHTML summarizes an HTML document.
func DigestHTML(html string) (PageDigest, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PageDigest{}, fmt.Errorf("failed to parse DOM snapshot: %w", err)
	}

	return PageDigest{
		Title:   strings.TrimSpace(doc.Find("title").First().Text()),
		Inputs:  doc.Find("input, textarea, select").Length(),
		Buttons: doc.Find("button, [role='button']").Length(),
		Links:   doc.Find("a[href]").Length(),
	}, nil
}

// digestFile summarizes a persisted dom.html artifact.
func digestFile(path string) (PageDigest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PageDigest{}, err
	}
	return DigestHTML(string(data))
}
