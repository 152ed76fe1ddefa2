package cli

import (
	"log/slog"

	"github.com/roach88/gridfill/internal/store"
)

// openStore opens the database at path, reporting failures as command
// errors. The caller closes the store with closeStore.
func openStore(formatter *OutputFormatter, path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeNotFound, "failed to open database: "+err.Error(), err)
	}
	return st, nil
}

func closeStore(st *store.Store, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}
