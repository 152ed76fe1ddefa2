package enrich

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/roach88/gridfill/internal/record"
)

// Kind selects how a response is turned into fields.
type Kind string

const (
	KindProfile     Kind = "profile"
	KindCoordinates Kind = "coordinates"
	KindLink        Kind = "link"
	KindFields      Kind = "fields"
)

// Kinds lists the supported extractor kinds.
var Kinds = []Kind{KindProfile, KindCoordinates, KindLink, KindFields}

// Default target fields per kind.
const (
	DefaultCoordinatesTarget = "latLon"
	DefaultLinkTarget        = "linkedin"
)

// Source is one enrichment endpoint. It implements scheduler.Task.
type Source struct {
	// Name identifies the source in journals and on the command line.
	Name string

	// URL is the endpoint prefix; the escaped lookup value is appended.
	URL string

	// Query is the record field supplying the lookup value.
	Query string

	// Format optionally wraps the lookup value, e.g. "%s linkedin.com".
	Format string

	// Extract selects the extractor.
	Extract Kind

	// Target is the output field for coordinates and link extractors.
	Target string

	// Mappings maps response keys (profile) or dotted paths (fields) to
	// record fields.
	Mappings map[string]string

	client *Client
}

// NewSource returns src bound to client. A nil client gets NewClient().
func NewSource(src Source, client *Client) *Source {
	if client == nil {
		client = NewClient()
	}
	out := src
	out.Mappings = make(map[string]string, len(src.Mappings))
	for k, v := range src.Mappings {
		out.Mappings[k] = v
	}
	out.client = client
	return &out
}

// Validate checks that the source can run.
func (s *Source) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source has no name")
	}
	if s.URL == "" {
		return fmt.Errorf("source %s: url is empty", s.Name)
	}
	if s.Query == "" {
		return fmt.Errorf("source %s: query field is empty", s.Name)
	}
	switch s.Extract {
	case KindProfile, KindCoordinates, KindLink:
	case KindFields:
		if len(s.Mappings) == 0 {
			return fmt.Errorf("source %s: fields extractor needs mappings", s.Name)
		}
	default:
		return fmt.Errorf("source %s: unknown extractor %q", s.Name, s.Extract)
	}
	if s.Format != "" && strings.Count(s.Format, "%s") != 1 {
		return fmt.Errorf("source %s: format must contain exactly one %%s", s.Name)
	}
	return nil
}

// TaskName implements scheduler.Named.
func (s *Source) TaskName() string {
	return s.Name
}

// Enrich fetches and extracts fields for rec. Every failure is returned as
// a failed result; nothing escapes.
func (s *Source) Enrich(ctx context.Context, rec record.Record) record.Result {
	fields, err := s.fetch(ctx, rec)
	if err != nil {
		return record.Failed(rec.ID, fmt.Errorf("%s: %w", s.Name, err))
	}
	return record.Succeeded(record.NewUpdate(rec.ID, fields))
}

// RequestURL returns the URL that would be fetched for rec.
func (s *Source) RequestURL(rec record.Record) (string, error) {
	v, ok := rec.Get(s.Query)
	str, isString := v.(record.String)
	if !ok || !isString || strings.TrimSpace(string(str)) == "" {
		return "", &MissingFieldError{RecordID: rec.ID, Field: s.Query}
	}

	query := string(str)
	if s.Format != "" {
		query = strings.Replace(s.Format, "%s", query, 1)
	}
	return s.URL + EscapeComponent(query), nil
}

func (s *Source) fetch(ctx context.Context, rec record.Record) (record.Fields, error) {
	u, err := s.RequestURL(rec)
	if err != nil {
		return nil, err
	}
	client := s.client
	if client == nil {
		client = NewClient()
	}
	body, err := client.GetJSON(ctx, u)
	if err != nil {
		return nil, err
	}
	return s.extract(body)
}

func (s *Source) extract(body any) (record.Fields, error) {
	switch s.Extract {
	case KindProfile:
		return extractProfile(body, s.Mappings)
	case KindCoordinates:
		return extractCoordinates(body, targetOr(s.Target, DefaultCoordinatesTarget))
	case KindLink:
		return extractLink(body, targetOr(s.Target, DefaultLinkTarget))
	case KindFields:
		return extractFields(body, s.Mappings)
	default:
		return nil, fmt.Errorf("unknown extractor %q", s.Extract)
	}
}

func targetOr(target, def string) string {
	if target == "" {
		return def
	}
	return target
}

var componentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeComponent escapes s the way JavaScript's encodeURIComponent does:
// spaces become %20 and !'()* are left as is.
func EscapeComponent(s string) string {
	return componentReplacer.Replace(url.QueryEscape(s))
}
