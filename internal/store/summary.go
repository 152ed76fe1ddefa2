package store

import (
	"context"
	"fmt"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Summary holds the aggregate values shown in a grid's summary row.
type Summary struct {
	Total    int `json:"total"`
	YesCount int `json:"yes_count"`
}

// YesPercent returns floor(100 * YesCount / Total), or 0 for an empty store.
func (s Summary) YesPercent() int {
	if s.Total == 0 {
		return 0
	}
	return 100 * s.YesCount / s.Total
}

// Summary counts all records and those whose boolField is true.
// Records where the field is absent or not a boolean count as "no".
// The field is matched by key via json_each, so quotes and dots in its
// name are not interpreted as path syntax.
func (s *Store) Summary(ctx context.Context, boolField string) (Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE
				WHEN EXISTS (
					SELECT 1 FROM json_each(records.fields) AS f
					WHERE f.key = ? AND f.type = 'true'
				) THEN 1
				ELSE 0
			END), 0)
		FROM records
	`, boolField).Scan(&sum.Total, &sum.YesCount)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	return sum, nil
}

// DistinctValues returns the distinct non-empty string values of field,
// collated for tag (language.Und when the zero Tag is passed). This feeds
// option lists such as the country editor.
func (s *Store) DistinctValues(ctx context.Context, field string, tag language.Tag) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT f.value
		FROM records, json_each(records.fields) AS f
		WHERE f.key = ? AND f.type = 'text'
	`, field)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct %s: %w", field, err)
		}
		if v != "" {
			values = append(values, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct %s: %w", field, err)
	}

	collate.New(tag).SortStrings(values)
	return values, nil
}
