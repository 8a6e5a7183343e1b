package rtags

import (
	"fmt"

	"github.com/xenodium/rtags/internal/kv"
	"github.com/xenodium/rtags/internal/scipexport"
	"github.com/xenodium/rtags/internal/store"
)

// ExportSCIP reads the stored entry set and writes it as a SCIP index to
// outPath. File paths are made relative to projectRoot in the output.
func (e *Engine) ExportSCIP(outPath, projectRoot string) error {
	db, err := kv.Open(e.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	entities, err := store.NewReader(db).EntitySet()
	db.Close()
	if err != nil {
		return fmt.Errorf("read entry set: %w", err)
	}
	idx := scipexport.Build(entities, projectRoot)
	if err := scipexport.WriteFile(outPath, idx); err != nil {
		return err
	}
	e.log.Info("export.done", "path", outPath, "documents", len(idx.Documents))
	return nil
}
