package chemio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/turtacn/macroconf/internal/domain/conformer"
	"github.com/turtacn/macroconf/internal/domain/molecule"
	"github.com/turtacn/macroconf/pkg/errors"
)

// WritePDBFile writes the conformers to path as a multi-model PDB.
func WritePDBFile(path string, g *molecule.MolecularGraph, confs []*conformer.Candidate) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePDBWriteFailed, "creating pdb file")
	}
	defer f.Close()
	if err := WritePDB(f, g, confs); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodePDBWriteFailed, "closing pdb file")
	}
	return nil
}

// WritePDB emits one MODEL block per conformer, in the order given (callers
// pass ensembles sorted ascending by energy).  Atoms are written as HETATM
// records with CONECT connectivity after the last model.
func WritePDB(w io.Writer, g *molecule.MolecularGraph, confs []*conformer.Candidate) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "COMPND    %s\n", g.Name())
	for m, c := range confs {
		if len(c.Coords) != g.NumAtoms() {
			return errors.Newf(errors.ErrCodePDBWriteFailed,
				"conformer %d has %d coordinates for %d atoms", m, len(c.Coords), g.NumAtoms())
		}
		fmt.Fprintf(bw, "MODEL     %4d\n", m+1)
		fmt.Fprintf(bw, "REMARK   1 ENERGY %10.4f KCAL/MOL\n", c.Energy)
		for i := 0; i < g.NumAtoms(); i++ {
			el := g.Atom(i).Element
			p := c.Coords[i]
			fmt.Fprintf(bw, "HETATM%5d %-4s UNL A   1    %8.3f%8.3f%8.3f  1.00  0.00          %2s\n",
				i+1, atomName(el, i), p.X, p.Y, p.Z, el)
		}
		fmt.Fprintln(bw, "ENDMDL")
	}

	for i := 0; i < g.NumAtoms(); i++ {
		nbs := g.Neighbors(i)
		if len(nbs) == 0 {
			continue
		}
		fmt.Fprintf(bw, "CONECT%5d", i+1)
		for _, nb := range nbs {
			fmt.Fprintf(bw, "%5d", nb+1)
		}
		fmt.Fprintln(bw)
	}
	fmt.Fprintln(bw, "END")

	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrCodePDBWriteFailed, "flushing pdb output")
	}
	return nil
}

// atomName builds a per-atom PDB name like C1, O12 from the element and the
// atom's index.
func atomName(element string, idx int) string {
	name := fmt.Sprintf("%s%d", element, idx+1)
	if len(name) > 4 {
		name = name[:4]
	}
	return name
}
