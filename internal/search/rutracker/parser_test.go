package rutracker

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func resultRow(category, title string, topicID, downloadID, seeds uint64) string {
	return fmt.Sprintf(`<tr>
  <td></td>
  <td></td>
  <td><a href="tracker.php?f=1">%s</a></td>
  <td><a data-topic_id="%d" href="viewtopic.php?t=%d">%s</a></td>
  <td></td>
  <td><a href="dl.php?t=%d">DL</a></td>
  <td><b class="seedmed">%d</b></td>
  <td></td>
  <td></td>
  <td></td>
</tr>`, category, topicID, topicID, title, downloadID, seeds)
}

func resultsPage(rows ...string) string {
	return `<html><body><table class="forumline tablesorter">
<tr><th>header</th></tr>` + strings.Join(rows, "\n") + `</table></body></html>`
}

func TestParseSearchResultsFiltersAndRanks(t *testing.T) {
	page := resultsPage(
		resultRow("Видео, Клипы", "Ted Irens - Foo [DVD]", 10, 110, 40),
		resultRow("Рок, Lossless", "Ted Irens - Foo [MP3, 320 kbps]", 1, 11, 40),
		resultRow("Рок, Lossless", "Ted Irens - Foo [FLAC, lossless, image+.cue]", 2, 12, 40),
		resultRow("Рок, Lossless", "Ted Irens - Foo [FLAC, lossless]", 3, 13, 40),
	)

	topics, err := parseSearchResults(page)
	if err != nil {
		t.Fatalf("parseSearchResults: %v", err)
	}
	// The video category and the image+.cue release are dropped; the FLAC
	// release outranks the MP3 one.
	if len(topics) != 2 {
		t.Fatalf("got %d topics, want 2: %v", len(topics), topics)
	}
	if topics[0].TopicID != 3 || topics[0].DownloadID != 13 {
		t.Fatalf("topics[0] = %+v, want topic 3", topics[0])
	}
	if topics[1].TopicID != 1 || topics[1].DownloadID != 11 {
		t.Fatalf("topics[1] = %+v, want topic 1", topics[1])
	}
	if topics[0].Title != "Ted Irens - Foo [FLAC, lossless]" {
		t.Fatalf("topics[0].Title = %q", topics[0].Title)
	}
}

func TestParseSearchResultsSkipsMalformedRows(t *testing.T) {
	// Rows without the full column set, e.g. the "nothing found" banner.
	page := resultsPage(`<tr><td colspan="10">Не найдено</td></tr>`)
	topics, err := parseSearchResults(page)
	if err != nil {
		t.Fatalf("parseSearchResults: %v", err)
	}
	if len(topics) != 0 {
		t.Fatalf("got %d topics, want 0", len(topics))
	}
}

func TestParseSearchResultsNoTable(t *testing.T) {
	topics, err := parseSearchResults("<html><body><p>maintenance</p></body></html>")
	if err != nil {
		t.Fatalf("parseSearchResults: %v", err)
	}
	if len(topics) != 0 {
		t.Fatalf("got %d topics, want 0", len(topics))
	}
}

func TestValidateAuthState(t *testing.T) {
	cases := []struct {
		name string
		page string
		want error
	}{
		{"authenticated", `<a class="log-out-icon"></a>`, nil},
		{"captcha", "введите код подтверждения", ErrCaptchaRequired},
		{"bad password", "неверный пароль", ErrIncorrectPassword},
		{"anonymous", "<html></html>", ErrNotAuthenticated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateAuthState(tc.page); !errors.Is(err, tc.want) {
				t.Fatalf("validateAuthState = %v, want %v", err, tc.want)
			}
		})
	}
}
