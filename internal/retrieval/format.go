package retrieval

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flemzord/confidant/internal/memory"
)

// ageBucket maps ages below Max days to Label.
type ageBucket struct {
	Max   int
	Label string
}

// buckets lists the age labels newest to oldest. The final entry catches
// everything from a year on.
var buckets = func() []ageBucket {
	b := make([]ageBucket, 0, 18)
	for n := 1; n <= 7; n++ {
		label := strconv.Itoa(n) + " days ago"
		if n == 1 {
			label = "1 day ago"
		}
		b = append(b, ageBucket{Max: n, Label: label})
	}
	return append(b,
		ageBucket{Max: 14, Label: "1 week ago"},
		ageBucket{Max: 21, Label: "2 weeks ago"},
		ageBucket{Max: 28, Label: "3 weeks ago"},
		ageBucket{Max: 60, Label: "1 month ago"},
		ageBucket{Max: 90, Label: "2 months ago"},
		ageBucket{Max: 120, Label: "3 months ago"},
		ageBucket{Max: 150, Label: "4 months ago"},
		ageBucket{Max: 180, Label: "5 months ago"},
		ageBucket{Max: 365, Label: "half a year ago"},
		ageBucket{Max: -1, Label: "long ago"},
	)
}()

func bucketIndex(ageDays int) int {
	for i, b := range buckets {
		if b.Max < 0 || ageDays < b.Max {
			return i
		}
	}
	return len(buckets) - 1
}

// AgeLabel returns the human-readable bucket for a fact ageDays old.
func AgeLabel(ageDays int) string {
	return buckets[bucketIndex(ageDays)].Label
}

// FormatFacts groups facts by age and renders them newest bucket first.
// Each bucket is a "label:" line followed by "- fact" lines. Title and
// instructions lines are prepended when non-blank. No facts renders "".
func FormatFacts(facts []memory.Fact, now time.Time, title, instructions string) string {
	if len(facts) == 0 {
		return ""
	}

	grouped := make([][]string, len(buckets))
	for _, f := range facts {
		i := bucketIndex(memory.AgeDays(f.CreatedAt, now))
		grouped[i] = append(grouped[i], f.Content)
	}

	blocks := header(title, instructions)
	for i, contents := range grouped {
		if len(contents) == 0 {
			continue
		}
		var sb strings.Builder
		sb.WriteString(buckets[i].Label)
		sb.WriteString(":")
		for _, c := range contents {
			sb.WriteString("\n- ")
			sb.WriteString(c)
		}
		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, "\n\n")
}

// FormatExcerpts renders excerpts as a numbered list in the given order.
func FormatExcerpts(excerpts []memory.Excerpt, title, instructions string) string {
	if len(excerpts) == 0 {
		return ""
	}

	lines := make([]string, len(excerpts))
	for i, ex := range excerpts {
		lines[i] = fmt.Sprintf("%d. %s", i+1, ex.Text)
	}
	return strings.Join(append(header(title, instructions), strings.Join(lines, "\n")), "\n\n")
}

func header(title, instructions string) []string {
	var lines []string
	if t := strings.TrimSpace(title); t != "" {
		lines = append(lines, t)
	}
	if in := strings.TrimSpace(instructions); in != "" {
		lines = append(lines, in)
	}
	if len(lines) == 0 {
		return nil
	}
	return []string{strings.Join(lines, "\n")}
}
