package issue

import (
	"fmt"
	"strconv"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

type field struct {
	path  string
	value any
}

// JSON renders issues as an indented JSON array.
func JSON(issues []Issue) ([]byte, error) {
	out := []byte("[]")
	for n, i := range issues {
		fields := []field{
			{"file", i.File},
			{"line", i.Span.Line + 1},
			{"column", i.Span.Column + 1},
			{"start", i.Span.Start},
			{"end", i.Span.End},
			{"level", i.Level.String()},
			{"code", string(i.Code)},
			{"message", i.Message},
		}
		if i.Fix != nil {
			fields = append(fields,
				field{"fix.start", i.Fix.Span.Start},
				field{"fix.end", i.Fix.Span.End},
				field{"fix.replacement", i.Fix.Replacement},
			)
		}
		prefix := strconv.Itoa(n) + "."
		var err error
		for _, f := range fields {
			out, err = sjson.SetBytes(out, prefix+f.path, f.value)
			if err != nil {
				return nil, fmt.Errorf("failed to encode issue %d: %w", n, err)
			}
		}
	}
	return pretty.Pretty(out), nil
}
