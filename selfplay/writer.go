package selfplay

import (
	"log/slog"

	"github.com/brensch/twenty48/store"
)

// WriteLoop streams finished games into Parquet batches under outDir,
// starting a new batch every gamesPerFlush games. It returns once in is
// closed and the last batch is finalized.
func WriteLoop(outDir string, gamesPerFlush int, in <-chan []store.DecisionRow, logger *slog.Logger) (games int, err error) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}
	if logger == nil {
		logger = slog.Default()
	}

	var w *store.BatchWriter
	flush := func() {
		if w == nil {
			return
		}
		path, rows, n, ferr := w.Finalize()
		w = nil
		if ferr != nil {
			logger.Error("parquet flush failed", "error", ferr)
			if err == nil {
				err = ferr
			}
			return
		}
		if path != "" {
			logger.Info("parquet flush ok", "path", path, "games", n, "rows", rows)
		}
	}

	for rows := range in {
		if len(rows) == 0 {
			continue
		}
		if w == nil {
			var oerr error
			if w, oerr = store.NewBatchWriter(outDir); oerr != nil {
				logger.Error("open batch writer", "error", oerr)
				if err == nil {
					err = oerr
				}
				continue
			}
		}
		if werr := w.WriteGame(rows); werr != nil {
			logger.Error("write game", "error", werr, "rows", len(rows))
			if err == nil {
				err = werr
			}
			continue
		}
		games++
		if w.Games() >= gamesPerFlush {
			flush()
		}
	}
	flush()
	return games, err
}
