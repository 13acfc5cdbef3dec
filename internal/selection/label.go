package selection

import (
	"fmt"

	"github.com/leapstack-labs/labbrowse/internal/catalog"
)

// Symbols maps status tags to the glyphs shown in dataset labels.
var Symbols = map[catalog.Tag]string{
	catalog.TagComplete: "✅",
	catalog.TagStar:     "😁",
	catalog.TagBad:      "😭",
	catalog.TagTrash:    "❌",
}

// labelTags is the order in which glyphs are appended. TagBad is not consulted.
var labelTags = []catalog.Tag{catalog.TagComplete, catalog.TagStar, catalog.TagTrash}

// Byte offsets into the folder stem, fixed by the dataset naming convention
// "2006-01-02T150405_<id>-<name>". Stems that do not follow it produce odd labels
// but never affect which path a label selects.
const (
	idStart   = 18
	idEnd     = 26
	nameStart = 27
)

// Label builds the display label " HH:MM:SS - <id> - <name> " plus status glyphs.
func Label(rec catalog.Record) string {
	stem := catalog.Stem(rec.Path)
	lbl := fmt.Sprintf(" %02d:%02d:%02d - %s - %s ",
		rec.Timestamp.Hour(), rec.Timestamp.Minute(), rec.Timestamp.Second(),
		slice(stem, idStart, idEnd), slice(stem, nameStart, len(stem)))
	for _, tag := range labelTags {
		if rec.HasTag(tag) {
			lbl += Symbols[tag]
		}
	}
	return lbl
}

// slice returns s[i:j] with both bounds clamped to len(s).
func slice(s string, i, j int) string {
	if i > len(s) {
		return ""
	}
	if j > len(s) {
		j = len(s)
	}
	return s[i:j]
}
