package chemio

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/macroconf/internal/domain/conformer"
	"github.com/turtacn/macroconf/internal/domain/geometry"
	"github.com/turtacn/macroconf/internal/domain/molecule"
	"github.com/turtacn/macroconf/pkg/errors"
)

// cyclodecaneRecord renders a minimal V2000 record for an all-carbon 10-ring.
func cyclodecaneRecord(title string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n  macroconf\n\n", title)
	sb.WriteString(" 10 10  0  0  0  0  0  0  0  0999 V2000\n")
	for i := 0; i < 10; i++ {
		a := 2 * math.Pi * float64(i) / 10
		fmt.Fprintf(&sb, "%10.4f%10.4f%10.4f %-3s 0  0  0  0  0  0  0  0  0  0  0  0\n",
			2.5*math.Cos(a), 2.5*math.Sin(a), 0.0, "C")
	}
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&sb, "%3d%3d%3d  0  0  0  0\n", i, i%10+1, 1)
	}
	sb.WriteString("M  END\n")
	return sb.String()
}

func TestReadSDF_SingleRecord(t *testing.T) {
	mols, err := ReadSDF(strings.NewReader(cyclodecaneRecord("cyclodecane") + "$$$$\n"))
	require.NoError(t, err)
	require.Len(t, mols, 1)

	g := mols[0]
	assert.Equal(t, "cyclodecane", g.Name())
	assert.Equal(t, 10, g.NumAtoms())
	assert.Equal(t, 10, g.NumBonds())
	assert.True(t, g.HasMacrocycle(molecule.MinMacroRingSize))
	assert.Equal(t, "C", g.Atom(0).Element)
}

func TestReadSDF_MultipleRecords(t *testing.T) {
	in := cyclodecaneRecord("first") + "$$$$\n" + cyclodecaneRecord("second") + "$$$$\n"
	mols, err := ReadSDF(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, mols, 2)
	assert.Equal(t, "first", mols[0].Name())
	assert.Equal(t, "second", mols[1].Name())
}

func TestReadSDF_ChargeProperty(t *testing.T) {
	rec := cyclodecaneRecord("charged")
	rec = strings.Replace(rec, "M  END\n", "M  CHG  1   3  -1\nM  END\n", 1)
	mols, err := ReadSDF(strings.NewReader(rec))
	require.NoError(t, err)
	assert.Equal(t, -1, mols[0].Atom(2).FormalCharge)
}

func TestReadSDF_RejectsAromaticBonds(t *testing.T) {
	rec := cyclodecaneRecord("aromatic")
	rec = strings.Replace(rec, fmt.Sprintf("%3d%3d%3d  0  0  0  0\n", 1, 2, 1),
		fmt.Sprintf("%3d%3d%3d  0  0  0  0\n", 1, 2, 4), 1)
	_, err := ReadSDF(strings.NewReader(rec))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSDFParseFailed))
}

func TestReadSDF_EmptyStream(t *testing.T) {
	_, err := ReadSDF(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSDFParseFailed))
}

func decagonGraph(t *testing.T) *molecule.MolecularGraph {
	t.Helper()
	atoms := make([]molecule.Atom, 10)
	for i := range atoms {
		atoms[i] = molecule.Atom{Element: "C"}
	}
	bonds := make([]molecule.Bond, 10)
	for i := 0; i < 10; i++ {
		bonds[i] = molecule.Bond{A: i, B: (i + 1) % 10, Order: molecule.BondSingle}
	}
	g, err := molecule.NewGraph("decagon", atoms, bonds)
	require.NoError(t, err)
	return g
}

func flatRing(scale float64) []geometry.Vec3 {
	coords := make([]geometry.Vec3, 10)
	for i := range coords {
		a := 2 * math.Pi * float64(i) / 10
		coords[i] = geometry.Vec3{X: scale * math.Cos(a), Y: scale * math.Sin(a)}
	}
	return coords
}

func relaxedCandidate(scale, energy float64) *conformer.Candidate {
	c := conformer.NewCandidate(conformer.ConstraintSet{TorsionSeeds: make([]float64, 10)}, flatRing(scale))
	c.SetRelaxed(flatRing(scale), energy, true)
	return c
}

func TestWritePDB_ModelsAndConnectivity(t *testing.T) {
	g := decagonGraph(t)
	confs := []*conformer.Candidate{relaxedCandidate(2.5, -1.0), relaxedCandidate(2.7, 0.5)}

	var buf bytes.Buffer
	require.NoError(t, WritePDB(&buf, g, confs))
	out := buf.String()

	assert.Equal(t, 2, strings.Count(out, "MODEL"))
	assert.Equal(t, 2, strings.Count(out, "ENDMDL"))
	assert.Equal(t, 20, strings.Count(out, "HETATM"))
	assert.Contains(t, out, "COMPND    decagon")
	assert.Contains(t, out, "REMARK   1 ENERGY    -1.0000 KCAL/MOL")
	assert.Contains(t, out, "CONECT    1    2   10")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "END"))
}

func TestWritePDB_CoordinateCountMismatch(t *testing.T) {
	g := decagonGraph(t)
	bad := conformer.NewCandidate(conformer.ConstraintSet{}, flatRing(2.5)[:5])
	err := WritePDB(&bytes.Buffer{}, g, []*conformer.Candidate{bad})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePDBWriteFailed))
}

func TestCollectAndWriteStats(t *testing.T) {
	g := decagonGraph(t)
	confs := []*conformer.Candidate{relaxedCandidate(2.5, 1.0), relaxedCandidate(3.0, 4.5)}

	stats := CollectStats(g, confs, 1500*time.Millisecond, map[string]string{
		"target_count":  "5",
		"energy_window": "10",
	})
	require.Len(t, stats.Energies, 2)
	assert.InDelta(t, 0.0, stats.RMSD[0], 1e-9)
	assert.InDelta(t, 0.5, stats.RMSD[1], 1e-9, "concentric rings differ by the radius delta")
	assert.Equal(t, stats.RMSD[1], stats.RingRMSD[1], "every atom is a ring atom here")

	var buf bytes.Buffer
	require.NoError(t, WriteStats(&buf, stats))
	out := buf.String()

	assert.Contains(t, out, "Molecule: decagon")
	assert.Contains(t, out, "Number of Conformers: 2")
	assert.Contains(t, out, "Time: 1.50 seconds")
	assert.Contains(t, out, "------------ Energy (kcal/mol) ------------")
	assert.Contains(t, out, "------------ Ring_RMSD (Å) ------------")
	assert.Contains(t, out, "energy_window : 10")
	// Parameters render sorted.
	assert.Less(t, strings.Index(out, "energy_window"), strings.Index(out, "target_count"))
}

func TestRotatePath(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "out.pdb")

	first := RotatePath(base)
	assert.Equal(t, filepath.Join(dir, "out_0.pdb"), first)
	require.NoError(t, os.WriteFile(first, []byte("x"), 0o644))

	second := RotatePath(base)
	assert.Equal(t, filepath.Join(dir, "out_1.pdb"), second)
}
