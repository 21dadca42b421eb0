package focus

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed indicates the analysis answer carried no usable focus object.
var ErrMalformed = errors.New("focus: malformed analysis answer")

var (
	pointsPattern = regexp.MustCompile(`(?s)focus_points"?\s*:\s*\[(.*?)\]`)
	flagsPattern  = regexp.MustCompile(`(?s)is_strong_focus"?\s*:\s*\[(.*?)\]`)
	quotedPattern = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

type analysis struct {
	FocusPoints   *[]string `json:"focus_points"`
	IsStrongFocus *[]bool   `json:"is_strong_focus"`
}

// ParseStrongPoints extracts the focus points flagged as strong from a
// free-text model answer. The object between the first '{' and the last
// '}' is decoded strictly first; when that fails the two arrays are
// recovered with a lenient textual scan. Flags beyond the list of points,
// and points without a flag, are ignored.
func ParseStrongPoints(answer string) ([]string, error) {
	start := strings.IndexByte(answer, '{')
	end := strings.LastIndexByte(answer, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no object found", ErrMalformed)
	}
	body := answer[start : end+1]

	points, flags, err := decodeStrict(body)
	if err != nil {
		points, flags, err = decodeLenient(body)
		if err != nil {
			return nil, err
		}
	}

	var kept []string
	for i, p := range points {
		if i >= len(flags) {
			break
		}
		if flags[i] && strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return kept, nil
}

func decodeStrict(body string) ([]string, []bool, error) {
	var a analysis
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return nil, nil, err
	}
	if a.FocusPoints == nil || a.IsStrongFocus == nil {
		return nil, nil, fmt.Errorf("%w: missing keys", ErrMalformed)
	}
	return *a.FocusPoints, *a.IsStrongFocus, nil
}

func decodeLenient(body string) ([]string, []bool, error) {
	pm := pointsPattern.FindStringSubmatch(body)
	fm := flagsPattern.FindStringSubmatch(body)
	if pm == nil || fm == nil {
		return nil, nil, fmt.Errorf("%w: focus_points or is_strong_focus missing", ErrMalformed)
	}

	var points []string
	for _, m := range quotedPattern.FindAllStringSubmatch(pm[1], -1) {
		s, err := strconv.Unquote(`"` + m[1] + `"`)
		if err != nil {
			s = m[1]
		}
		points = append(points, s)
	}

	var flags []bool
	for _, raw := range strings.Split(fm[1], ",") {
		v := strings.Trim(strings.TrimSpace(raw), `"'`)
		if v == "" {
			continue
		}
		flags = append(flags, v == "true")
	}
	return points, flags, nil
}
