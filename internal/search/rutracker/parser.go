package rutracker

import (
	"errors"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/tinoosan/radiofetch/internal/data"
)

const (
	captchaRequiredText   = "введите код подтверждения"
	incorrectPasswordText = "неверный пароль"
	successfulLoginText   = "log-out-icon"
)

var (
	ErrCaptchaRequired   = errors.New("captcha verification is required")
	ErrIncorrectPassword = errors.New("incorrect login or password")
	ErrNotAuthenticated  = errors.New("tracker session is not authenticated")
)

// validateAuthState inspects a raw tracker page for the session markers the
// forum embeds into every response.
func validateAuthState(rawHTML string) error {
	if strings.Contains(rawHTML, captchaRequiredText) {
		return ErrCaptchaRequired
	}
	if strings.Contains(rawHTML, incorrectPasswordText) {
		return ErrIncorrectPassword
	}
	if !strings.Contains(rawHTML, successfulLoginText) {
		return ErrNotAuthenticated
	}
	return nil
}

// parseSearchResults extracts candidate rows from a tracker.php results page
// and returns them ranked best-first. Rows outside lossless categories and
// scan-image releases are dropped.
func parseSearchResults(rawHTML string) ([]data.TopicData, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	var rows []topicRow
	for _, table := range findAll(doc, isElementWithClass("table", "forumline")) {
		trs := findAll(table, isElement("tr"))
		if len(trs) == 0 {
			continue
		}
		for _, tr := range trs[1:] {
			if countElementChildren(tr) != 10 {
				continue
			}
			row, ok := parseRow(tr)
			if !ok {
				continue
			}
			rows = append(rows, row)
		}
	}

	sortByPriority(rows)

	out := make([]data.TopicData, 0, len(rows))
	for _, row := range rows {
		out = append(out, data.TopicData{
			TopicID:    data.TopicId(row.topicID),
			DownloadID: data.DownloadId(row.downloadID),
			Title:      row.title,
		})
	}
	return out, nil
}

func parseRow(tr *html.Node) (topicRow, bool) {
	columns := findAll(tr, isElement("td"))
	if len(columns) < 7 {
		return topicRow{}, false
	}

	categoryLink := firstMatch(columns[2], isElement("a"))
	if categoryLink == nil || !strings.Contains(strings.ToLower(innerText(categoryLink)), "loss") {
		return topicRow{}, false
	}

	titleLink := firstMatch(columns[3], isElement("a"))
	if titleLink == nil {
		return topicRow{}, false
	}
	title := innerText(titleLink)
	if strings.Contains(title, "image+.cue") {
		return topicRow{}, false
	}
	topicID, err := strconv.ParseUint(attr(titleLink, "data-topic_id"), 10, 64)
	if err != nil {
		return topicRow{}, false
	}

	downloadLink := firstMatch(columns[5], isElement("a"))
	if downloadLink == nil {
		return topicRow{}, false
	}
	downloadID, err := strconv.ParseUint(strings.Replace(attr(downloadLink, "href"), "dl.php?t=", "", 1), 10, 64)
	if err != nil {
		return topicRow{}, false
	}

	seedsNode := firstMatch(columns[6], isElementWithClass("b", "seedmed"))
	if seedsNode == nil {
		return topicRow{}, false
	}
	seeds, err := strconv.ParseUint(strings.TrimSpace(innerText(seedsNode)), 10, 64)
	if err != nil {
		return topicRow{}, false
	}

	return topicRow{title: title, topicID: topicID, downloadID: downloadID, seeds: seeds}, true
}

// --- small DOM helpers over x/net/html ---

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func isElementWithClass(tag, class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != tag {
			return false
		}
		for _, field := range strings.Fields(attr(n, "class")) {
			if field == class {
				return true
			}
		}
		return false
	}
}

func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if pred(cur) {
			out = append(out, cur)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func firstMatch(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if matches := findAll(n, pred); len(matches) > 0 {
		return matches[0]
	}
	return nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func innerText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			sb.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func countElementChildren(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count++
		}
	}
	return count
}
