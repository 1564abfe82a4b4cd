package inference

import (
	"strconv"
	"strings"

	"github.com/Vizzuality/HLS-data-project/util"
)

// ParseBandSpec parses a band subset written as "[0,1,2]": a bracketed,
// comma-separated list of non-negative channel indices
func ParseBandSpec(spec string) ([]int, error) {
	trimmed := strings.TrimSpace(spec)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, util.NewError(util.Configuration, "band spec %q must be a bracketed list such as [0,1,2]", spec)
	}
	body := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if body == "" {
		return nil, util.NewError(util.Configuration, "band spec %q selects no bands", spec)
	}

	parts := strings.Split(body, ",")
	bands := make([]int, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || strings.HasPrefix(part, "+") {
			return nil, util.NewError(util.Configuration, "band spec %q: %q is not a non-negative integer", spec, part)
		}
		bands[i] = n
	}
	return bands, nil
}
