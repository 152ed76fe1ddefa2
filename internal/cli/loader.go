package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/gridfill/internal/gridspec"
)

// LoadResult contains a compiled grid spec and where it came from.
type LoadResult struct {
	Spec      *gridspec.GridSpec
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadGridSpec loads the CUE files in dir as one instance and compiles its
// grid field. Every failure is a *LoadError.
func LoadGridSpec(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("spec directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing spec directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	spec, err := gridspec.Compile(value)
	if err != nil {
		return nil, convertCompileError(err)
	}

	return &LoadResult{Spec: spec, FileCount: len(cueFiles)}, nil
}

// FindCUEFiles returns the .cue files directly in dir. Subdirectories are
// separate CUE packages and are not part of the instance.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *gridspec.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: err.Error(),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // Database write error

	// Grid spec errors
	ErrCodeColumns      = "E101" // No or invalid columns
	ErrCodeSource       = "E102" // Invalid source (url/env)
	ErrCodeSourceQuery  = "E103" // Query names an undeclared column
	ErrCodeSchema       = "E104" // Value violates the grid schema
	ErrCodeTimeout      = "E105" // Invalid timeout
	ErrCodeSummary      = "E106" // Summary column is not a bool column
	ErrCodeSourceFormat = "E107" // Invalid format template or mappings

	// Sort errors
	ErrCodeUnsupportedKey = "E201" // Sort key names no recognized column
	ErrCodeInvalidKey     = "E202" // Sort key string cannot be parsed

	// Record store errors
	ErrCodeRecordNotFound = "E301" // No record with that id
	ErrCodeDuplicate      = "E302" // Seed id already present
	ErrCodeRunNotFound    = "E303" // No run with that id
	ErrCodeSeedFile       = "E304" // Seed file unreadable or malformed

	// Enrichment errors
	ErrCodeUnknownSource = "E401" // Source not declared in the grid spec
	ErrCodeSourceURL     = "E402" // Source endpoint could not be resolved
	ErrCodeInvalidLimit  = "E403" // Concurrency limit below 1
	ErrCodeCancelled     = "E404" // Run cancelled before every record was attempted
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "columns", strings.HasPrefix(field, "columns."):
		return ErrCodeColumns
	case field == "cue":
		return ErrCodeSchema
	case field == "timeout":
		return ErrCodeTimeout
	case field == "summary":
		return ErrCodeSummary
	case strings.HasPrefix(field, "sources."):
		switch {
		case strings.HasSuffix(field, ".query"):
			return ErrCodeSourceQuery
		case strings.HasSuffix(field, ".format"), strings.HasSuffix(field, ".mappings"):
			return ErrCodeSourceFormat
		default:
			return ErrCodeSource
		}
	default:
		return ErrCodeGeneric
	}
}

// loadErrorParts returns the code and message of a *LoadError, or
// ErrCodeGeneric and the error text.
func loadErrorParts(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}
