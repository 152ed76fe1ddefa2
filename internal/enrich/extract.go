package enrich

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/gridfill/internal/record"
)

// profileFields maps profile response keys to record fields.
var profileFields = map[string]string{
	"imageUrl":            "linkedinImageUrl",
	"headline":            "linkedinHeadline",
	"companyOrSchool":     "companyOrSchool",
	"companyOrSchoolLink": "companyOrSchoolLink",
}

// extractProfile reads {"data": "<JSON array>"} and maps the first
// element's profile keys. data may also be a plain array.
func extractProfile(body any, overrides map[string]string) (record.Fields, error) {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, &ExtractError{Path: "data", Err: fmt.Errorf("response is not an object")}
	}

	var items []any
	switch data := obj["data"].(type) {
	case string:
		if strings.TrimSpace(data) == "" {
			return nil, &ExtractError{Path: "data", Err: ErrNoData}
		}
		parsed, err := decodeJSON([]byte(data))
		if err != nil {
			return nil, &ExtractError{Path: "data", Err: err}
		}
		arr, ok := parsed.([]any)
		if !ok {
			return nil, &ExtractError{Path: "data", Err: fmt.Errorf("data is not an array")}
		}
		items = arr
	case []any:
		items = data
	default:
		return nil, &ExtractError{Path: "data", Err: ErrNoData}
	}
	if len(items) == 0 {
		return nil, &ExtractError{Path: "data.0", Err: ErrNoData}
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return nil, &ExtractError{Path: "data.0", Err: fmt.Errorf("not an object")}
	}

	mapping := make(map[string]string, len(profileFields))
	for k, v := range profileFields {
		mapping[k] = v
	}
	for k, v := range overrides {
		mapping[k] = v
	}

	fields := record.Fields{}
	for _, key := range sortedKeys(mapping) {
		raw, present := first[key]
		if !present {
			continue
		}
		v, err := record.FromAny(raw)
		if err != nil {
			return nil, &ExtractError{Path: "data.0." + key, Err: err}
		}
		fields[mapping[key]] = v
	}
	if len(fields) == 0 {
		return nil, &ExtractError{Path: "data.0", Err: ErrNoData}
	}
	return fields, nil
}

// extractCoordinates reads {"latitude": n, "longitude": n} into
// target = "lat, lon".
func extractCoordinates(body any, target string) (record.Fields, error) {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, &ExtractError{Path: "latitude", Err: fmt.Errorf("response is not an object")}
	}
	lat, err := numberAt(obj, "latitude")
	if err != nil {
		return nil, err
	}
	lon, err := numberAt(obj, "longitude")
	if err != nil {
		return nil, err
	}
	return record.Fields{
		target: record.String(lat.String() + ", " + lon.String()),
	}, nil
}

func numberAt(obj map[string]any, key string) (record.Number, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return 0, &ExtractError{Path: key, Err: ErrNoData}
	}
	v, err := record.FromAny(raw)
	if err != nil {
		return 0, &ExtractError{Path: key, Err: err}
	}
	n, ok := v.(record.Number)
	if !ok {
		return 0, &ExtractError{Path: key, Err: fmt.Errorf("not a number: %v", raw)}
	}
	return n, nil
}

// extractLink reads data[0].link into target. An empty link is a failure.
func extractLink(body any, target string) (record.Fields, error) {
	raw, err := lookupPath(body, "data.0.link")
	if err != nil {
		return nil, err
	}
	link, ok := raw.(string)
	if !ok || link == "" {
		return nil, &ExtractError{Path: "data.0.link", Err: ErrNoData}
	}
	return record.Fields{target: record.String(link)}, nil
}

// extractFields resolves each dotted path in mappings into its field.
func extractFields(body any, mappings map[string]string) (record.Fields, error) {
	fields := make(record.Fields, len(mappings))
	for _, path := range sortedKeys(mappings) {
		raw, err := lookupPath(body, path)
		if err != nil {
			return nil, err
		}
		v, err := record.FromAny(raw)
		if err != nil {
			return nil, &ExtractError{Path: path, Err: err}
		}
		fields[mappings[path]] = v
	}
	return fields, nil
}

// lookupPath walks a decoded JSON value along a dotted path. Numeric
// segments index arrays.
func lookupPath(v any, path string) (any, error) {
	cur := v
	walked := ""
	for _, seg := range strings.Split(path, ".") {
		if walked == "" {
			walked = seg
		} else {
			walked += "." + seg
		}
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, &ExtractError{Path: walked, Err: ErrNoData}
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, &ExtractError{Path: walked, Err: ErrNoData}
			}
			cur = node[i]
		default:
			return nil, &ExtractError{Path: walked, Err: ErrNoData}
		}
	}
	return cur, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
