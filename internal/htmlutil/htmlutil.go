// internal/htmlutil/htmlutil.go

// Package htmlutil extracts structured data out of HTML payloads fetched
// through the download client.
package htmlutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/DataRetriever/internal/download"
	xerrors "github.com/valpere/DataRetriever/internal/errors"
)

// FetchDocument requests url and parses the response body as HTML.
func FetchDocument(ctx context.Context, client *download.Client, url string) (*goquery.Document, error) {
	text, err := client.DownloadText(ctx, url, download.RequestOptions{})
	if err != nil {
		return nil, err
	}
	return ParseDocument(text)
}

// ParseDocument parses an HTML string into a queryable document.
func ParseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &xerrors.DecodeError{Format: "html", Err: err}
	}
	return doc, nil
}

// ExtractLinks returns the href values of all anchors in the document,
// skipping empty and fragment-only targets.
func ExtractLinks(doc *goquery.Document) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		links = append(links, href)
	})
	return links
}

// ExtractTable reads the nth HTML table (0-based) into header-keyed records.
// The first row supplies the headers, from th cells when present, td
// otherwise.
func ExtractTable(doc *goquery.Document, index int) ([]map[string]string, error) {
	table := doc.Find("table").Eq(index)
	if table.Length() == 0 {
		return nil, &xerrors.DecodeError{
			Format: "html",
			Err:    fmt.Errorf("no table at index %d", index),
		}
	}

	var headers []string
	rows := table.Find("tr")
	rows.First().Find("th, td").Each(func(_ int, sel *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(sel.Text()))
	})

	var records []map[string]string
	rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		record := make(map[string]string, len(headers))
		row.Find("td").Each(func(col int, cell *goquery.Selection) {
			if col < len(headers) {
				record[headers[col]] = strings.TrimSpace(cell.Text())
			}
		})
		if len(record) > 0 {
			records = append(records, record)
		}
	})
	return records, nil
}
