package chemio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/turtacn/macroconf/internal/domain/conformer"
	"github.com/turtacn/macroconf/internal/domain/geometry"
	"github.com/turtacn/macroconf/internal/domain/molecule"
	"github.com/turtacn/macroconf/pkg/errors"
)

// RunStats is everything the statistics report records about one search.
type RunStats struct {
	Molecule   string
	Conformers int
	Elapsed    time.Duration
	Energies   []float64
	// RMSD and RingRMSD hold each conformer's deviation from the
	// lowest-energy one, all atoms and ring atoms respectively.
	RMSD     []float64
	RingRMSD []float64
	// Params dumps the effective search parameters.
	Params map[string]string
}

// CollectStats derives the report values from a finished ensemble.  The
// conformers must be sorted ascending by energy; deviations are measured
// against the first one.
func CollectStats(g *molecule.MolecularGraph, confs []*conformer.Candidate, elapsed time.Duration, params map[string]string) RunStats {
	stats := RunStats{
		Molecule:   g.Name(),
		Conformers: len(confs),
		Elapsed:    elapsed,
		Params:     params,
	}
	if len(confs) == 0 {
		return stats
	}
	ring := g.Macrocycle()
	ref := confs[0]
	for _, c := range confs {
		stats.Energies = append(stats.Energies, c.Energy)
		stats.RMSD = append(stats.RMSD, geometry.BestFitRMSD(ref.Coords, c.Coords))
		stats.RingRMSD = append(stats.RingRMSD, geometry.BestFitRMSD(ref.RingCoords(ring), c.RingCoords(ring)))
	}
	return stats
}

// WriteStatsFile writes the report to path.
func WriteStatsFile(path string, stats RunStats) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStatsWriteFailed, "creating stats file")
	}
	defer f.Close()
	if err := WriteStats(f, stats); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStatsWriteFailed, "closing stats file")
	}
	return nil
}

// WriteStats renders the report: header lines, one section per numeric
// series, and a sorted parameter dump.
func WriteStats(w io.Writer, stats RunStats) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Molecule: %s\n", stats.Molecule)
	fmt.Fprintf(bw, "Number of Conformers: %d\n", stats.Conformers)
	fmt.Fprintf(bw, "Time: %.2f seconds\n", stats.Elapsed.Seconds())

	writeSeries(bw, "Energy", "kcal/mol", stats.Energies)
	writeSeries(bw, "RMSD", "Å", stats.RMSD)
	writeSeries(bw, "Ring_RMSD", "Å", stats.RingRMSD)

	fmt.Fprintln(bw, "------------ Parameter List ------------")
	keys := make([]string, 0, len(stats.Params))
	for k := range stats.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(bw, "%s : %s\n", k, stats.Params[k])
	}

	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStatsWriteFailed, "flushing stats output")
	}
	return nil
}

func writeSeries(w io.Writer, name, units string, values []float64) {
	fmt.Fprintf(w, "------------ %s (%s) ------------\n", name, units)
	for _, v := range values {
		fmt.Fprintf(w, "%.4f\n", v)
	}
}
