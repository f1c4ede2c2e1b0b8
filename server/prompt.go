package server

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/internal/jsoncodec"
)

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// RenderTemplate replaces each {{identifier}} in template with the string
// form of the matching field of params. Placeholders without a matching
// field are kept verbatim; params that are not an object leave the
// template unchanged.
func RenderTemplate(template string, params any) (string, error) {
	fields, err := paramFields(params)
	if err != nil {
		return "", err
	}
	if fields == nil {
		return template, nil
	}

	var renderErr error
	out := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		value, ok := fields[match[2:len(match)-2]]
		if !ok {
			return match
		}
		s, err := stringify(value)
		if err != nil {
			if renderErr == nil {
				renderErr = err
			}
			return match
		}
		return s
	})
	if renderErr != nil {
		return "", renderErr
	}
	return out, nil
}

// paramFields flattens params into a field lookup. Arrays are indexed by
// position. A nil map means "no fields".
func paramFields(params any) (map[string]any, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return p, nil
	case []any:
		return indexFields(p), nil
	case json.RawMessage:
		if len(p) == 0 {
			return nil, nil
		}
		var decoded any
		if err := jsoncodec.Unmarshal(p, &decoded); err != nil {
			return nil, errors.Wrap(err, "decode prompt params")
		}
		return paramFields(decoded)
	case string, bool, float64, int, int64:
		return nil, nil
	}

	// Typed params (structs, typed maps) go through their JSON form.
	data, err := jsoncodec.Marshal(params)
	if err != nil {
		return nil, errors.Wrapf(err, "encode prompt params of type %T", params)
	}
	var decoded any
	if err := jsoncodec.Unmarshal(data, &decoded); err != nil {
		return nil, errors.Wrap(err, "decode prompt params")
	}
	switch d := decoded.(type) {
	case map[string]any:
		return d, nil
	case []any:
		return indexFields(d), nil
	}
	return nil, nil
}

func indexFields(items []any) map[string]any {
	fields := make(map[string]any, len(items))
	for i, v := range items {
		fields[strconv.Itoa(i)] = v
	}
	return fields
}

func stringify(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "null", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return formatNumber(t), nil
	case map[string]any, []any:
		data, err := jsoncodec.Marshal(t)
		if err != nil {
			return "", errors.Wrap(err, "encode placeholder value")
		}
		return string(data), nil
	default:
		return fmt.Sprint(t), nil
	}
}

// formatNumber prints whole numbers without a fraction and everything
// else in the shortest form that round-trips.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
