package rutracker

import (
	"sort"
	"strings"
)

var (
	audioFormatPriority  = []string{"FLAC", "MP3", "ALAC", "AAC"}
	audioBitratePriority = []string{"lossless", "320 kbps", "256 kbps"}
)

// topicRow is a parsed search-result row before ranking strips the seed count.
type topicRow struct {
	title      string
	topicID    uint64
	downloadID uint64
	seeds      uint64
}

// priority computes the composite rank of a row; lower is better. The
// bitrate weight deliberately dominates the format weight.
func priority(row topicRow) int {
	formatRank := markerRank(row.title, audioFormatPriority)
	bitrateRank := markerRank(row.title, audioBitratePriority)

	var seedsRank int
	switch {
	case row.seeds == 0:
		seedsRank = 10
	case row.seeds < 10:
		seedsRank = 3
	case row.seeds < 20:
		seedsRank = 2
	case row.seeds < 30:
		seedsRank = 1
	default:
		seedsRank = 0
	}

	return formatRank*5 + bitrateRank*10 + seedsRank
}

func markerRank(title string, markers []string) int {
	for i, marker := range markers {
		if strings.Contains(title, marker) {
			return i
		}
	}
	return 10
}

func sortByPriority(rows []topicRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return priority(rows[i]) < priority(rows[j])
	})
}
