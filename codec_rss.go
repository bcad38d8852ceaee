package tabular

import (
	"bytes"
	"regexp"

	"github.com/mmcdole/gofeed"
)

var reFeedRoot = regexp.MustCompile(`<(rss|feed)[\s>]`)

// looksLikeFeed spots an RSS or Atom root early in the document.
func looksLikeFeed(trimmed []byte) bool {
	head := trimmed
	if len(head) > 512 {
		head = head[:512]
	}
	return reFeedRoot.Match(head)
}

// feedRows maps feed items to rows, one item per row with the fields a
// table consumer wants. Feeds stay under the xml format tag; this is a
// row mapping, not a separate format.
func feedRows(data []byte) ([]Row, []string, bool) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil || feed == nil || len(feed.Items) == 0 {
		return nil, nil, false
	}

	headers := []string{"title", "link", "published", "updated", "author", "description"}
	rows := make([]Row, 0, len(feed.Items))
	for _, item := range feed.Items {
		author := ""
		if len(item.Authors) > 0 && item.Authors[0] != nil {
			author = item.Authors[0].Name
		}
		rows = append(rows, Row{
			"title":       item.Title,
			"link":        item.Link,
			"published":   item.Published,
			"updated":     item.Updated,
			"author":      author,
			"description": item.Description,
		})
	}
	return rows, headers, true
}
