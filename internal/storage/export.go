package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/dpsim/internal/sim"
)

type ExportData struct {
	Metadata   RunMetadata     `json:"metadata"`
	Trajectory *sim.Trajectory `json:"trajectory"`
}

func ExportJSON(w io.Writer, meta RunMetadata, traj *sim.Trajectory) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Metadata: meta, Trajectory: traj})
}
