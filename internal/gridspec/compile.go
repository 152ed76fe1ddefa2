package gridspec

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/gridfill/internal/enrich"
	"github.com/roach88/gridfill/internal/order"
)

//go:embed schema.cue
var schemaSource string

// Compile unifies v with the grid schema and parses its "grid" field into a
// GridSpec. v is typically the root value of a built CUE instance:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`grid: columns: title: type: "string"`)
//	spec, err := Compile(v)
func Compile(v cue.Value) (*GridSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("grid schema: %w", err)
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	// g carries defaults; raw is the user's own value, used for positions.
	g := unified.LookupPath(cue.ParsePath("grid"))
	raw := v.LookupPath(cue.ParsePath("grid"))
	spec := &GridSpec{}

	var err error
	spec.Columns, err = parseColumns(g, raw)
	if err != nil {
		return nil, err
	}
	if len(spec.Columns) == 0 {
		return nil, &CompileError{
			Field:   "columns",
			Message: "at least one column is required",
			Pos:     raw.Pos(),
		}
	}

	spec.Sources, err = parseSources(g, raw, spec)
	if err != nil {
		return nil, err
	}

	concurrency, err := g.LookupPath(cue.ParsePath("concurrency")).Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Concurrency = int(concurrency)

	timeout, err := g.LookupPath(cue.ParsePath("timeout")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Timeout, err = time.ParseDuration(timeout)
	if err != nil || spec.Timeout <= 0 {
		return nil, &CompileError{
			Field:   "timeout",
			Message: fmt.Sprintf("invalid duration %q", timeout),
			Pos:     posAt(raw, "timeout"),
		}
	}

	summaryVal := g.LookupPath(cue.ParsePath("summary"))
	if summaryVal.Exists() {
		spec.Summary, err = summaryVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		col, ok := spec.Column(spec.Summary)
		if !ok || col.Type != order.TypeBool {
			return nil, &CompileError{
				Field:   "summary",
				Message: fmt.Sprintf("%q must name a bool column", spec.Summary),
				Pos:     posAt(raw, "summary"),
			}
		}
	}

	return spec, nil
}

// parseColumns extracts columns in declaration order.
func parseColumns(g, raw cue.Value) ([]Column, error) {
	var columns []Column

	iter, err := g.LookupPath(cue.ParsePath("columns")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		colVal := iter.Value()
		col := Column{Name: iter.Label()}

		typeName, err := colVal.LookupPath(cue.ParsePath("type")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		col.Type, err = order.ParseType(typeName)
		if err != nil {
			return nil, &CompileError{
				Field:   "columns." + col.Name,
				Message: err.Error(),
				Pos:     posAt(raw, "columns", col.Name),
			}
		}

		if labelVal := colVal.LookupPath(cue.ParsePath("label")); labelVal.Exists() {
			if col.Label, err = labelVal.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if col.Sortable, err = colVal.LookupPath(cue.ParsePath("sortable")).Bool(); err != nil {
			return nil, formatCUEError(err)
		}

		columns = append(columns, col)
	}

	return columns, nil
}

// parseSources extracts sources in declaration order and checks them
// against the already parsed columns.
func parseSources(g, raw cue.Value, spec *GridSpec) ([]Source, error) {
	var sources []Source

	iter, err := g.LookupPath(cue.ParsePath("sources")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		srcVal := iter.Value()
		src := Source{Name: iter.Label()}
		field := "sources." + src.Name

		if src.URL, err = optionalString(srcVal, "url"); err != nil {
			return nil, err
		}
		if src.Env, err = optionalString(srcVal, "env"); err != nil {
			return nil, err
		}
		if (src.URL == "") == (src.Env == "") {
			return nil, &CompileError{
				Field:   field,
				Message: "exactly one of url or env is required",
				Pos:     posAt(raw, "sources", src.Name),
			}
		}

		if src.Query, err = srcVal.LookupPath(cue.ParsePath("query")).String(); err != nil {
			return nil, formatCUEError(err)
		}
		if _, ok := spec.Column(src.Query); !ok {
			return nil, &CompileError{
				Field:   field + ".query",
				Message: fmt.Sprintf("query field %q is not a declared column", src.Query),
				Pos:     posAt(raw, "sources", src.Name, "query"),
			}
		}

		if src.Format, err = optionalString(srcVal, "format"); err != nil {
			return nil, err
		}
		if src.Format != "" && strings.Count(src.Format, "%s") != 1 {
			return nil, &CompileError{
				Field:   field + ".format",
				Message: "format must contain exactly one %s",
				Pos:     posAt(raw, "sources", src.Name, "format"),
			}
		}

		extract, err := srcVal.LookupPath(cue.ParsePath("extract")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		src.Extract = enrich.Kind(extract)

		if src.Target, err = optionalString(srcVal, "target"); err != nil {
			return nil, err
		}

		if mappingsVal := srcVal.LookupPath(cue.ParsePath("mappings")); mappingsVal.Exists() {
			if err := mappingsVal.Decode(&src.Mappings); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if src.Extract == enrich.KindFields && len(src.Mappings) == 0 {
			return nil, &CompileError{
				Field:   field + ".mappings",
				Message: "fields extraction needs at least one mapping",
				Pos:     posAt(raw, "sources", src.Name),
			}
		}

		sources = append(sources, src)
	}

	return sources, nil
}

// posAt returns the source position of the labelled path under v, or an
// invalid position when the path is absent.
func posAt(v cue.Value, labels ...string) token.Pos {
	sels := make([]cue.Selector, len(labels))
	for i, l := range labels {
		sels[i] = cue.Str(l)
	}
	return v.LookupPath(cue.MakePath(sels...)).Pos()
}

func optionalString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileString compiles CUE source text. filename is used in error
// positions.
func CompileString(ctx *cue.Context, src, filename string) (*GridSpec, error) {
	return Compile(ctx.CompileString(src, cue.Filename(filename)))
}
