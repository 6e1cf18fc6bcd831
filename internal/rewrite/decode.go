package rewrite

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"uniqtext/internal/model"
)

// ErrRewriteDecode marks a service answer that is not the expected JSON object.
var ErrRewriteDecode = errors.New("invalid rewrite payload")

// Decode parses the service answer. The text must be a single JSON object
// with all five keys spelled exactly; surrounding markup or prose is rejected.
func Decode(text string) (model.RewriteResult, error) {
	// a map keeps key matching exact; struct tags would match any case
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &obj); err != nil {
		return model.RewriteResult{}, fmt.Errorf("%w: %w", ErrRewriteDecode, err)
	}
	if obj == nil {
		return model.RewriteResult{}, fmt.Errorf("%w: not an object", ErrRewriteDecode)
	}

	var (
		r       model.RewriteResult
		missing []string
	)
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"title", &r.Title},
		{"base_desc", &r.BaseDesc},
		{"detail_desc", &r.DetailDesc},
		{"short", &r.Short},
	} {
		if !decodeString(obj[f.name], f.dst) {
			missing = append(missing, f.name)
		}
	}
	keywords, ok := decodeKeywords(obj["keywords"])
	if !ok {
		missing = append(missing, "keywords")
	}
	if len(missing) > 0 {
		return model.RewriteResult{}, fmt.Errorf("%w: missing or malformed %s", ErrRewriteDecode, strings.Join(missing, ", "))
	}
	r.Keywords = keywords
	return r, nil
}

func decodeString(raw json.RawMessage, dst *string) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// decodeKeywords accepts a comma separated string or a list of strings.
func decodeKeywords(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", "), true
	}
	return "", false
}
