// Package chemio handles the engine's file formats: SDF V2000 input,
// multi-model PDB output, the run-statistics report, and non-clobbering
// output naming.
package chemio

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/turtacn/macroconf/internal/domain/molecule"
	"github.com/turtacn/macroconf/pkg/errors"
)

// ReadSDFFile parses every molecule record in an SDF file.
func ReadSDFFile(path string) ([]*molecule.MolecularGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIO, "opening sdf file")
	}
	defer f.Close()
	return ReadSDF(f)
}

// ReadSDF parses a V2000 SDF stream.  Records are separated by "$$$$"; each
// record's title line names the molecule.  Aromatic (order 4) bonds are
// rejected: the engine works on kekulized structures.
func ReadSDF(r io.Reader) ([]*molecule.MolecularGraph, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var mols []*molecule.MolecularGraph
	for {
		g, more, err := readRecord(sc)
		if err != nil {
			return nil, err
		}
		if g != nil {
			mols = append(mols, g)
		}
		if !more {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeIO, "reading sdf stream")
	}
	if len(mols) == 0 {
		return nil, errors.New(errors.ErrCodeSDFParseFailed, "no molecule records found")
	}
	return mols, nil
}

// readRecord parses one molfile record.  It returns (nil, false, nil) on a
// clean end of stream and more=true when a "$$$$" separator promises another
// record.
func readRecord(sc *bufio.Scanner) (*molecule.MolecularGraph, bool, error) {
	if !sc.Scan() {
		return nil, false, nil
	}
	title := strings.TrimSpace(sc.Text())

	// Program line and comment line.  A blank title followed by end of
	// stream is trailing padding, not a truncated record.
	for i := 0; i < 2; i++ {
		if !sc.Scan() {
			if title == "" && i == 0 {
				return nil, false, nil
			}
			return nil, false, errors.New(errors.ErrCodeSDFParseFailed, "truncated molfile header")
		}
	}

	if !sc.Scan() {
		return nil, false, errors.New(errors.ErrCodeSDFParseFailed, "missing counts line")
	}
	counts := sc.Text()
	if len(counts) < 6 {
		return nil, false, errors.Newf(errors.ErrCodeSDFParseFailed, "malformed counts line %q", counts)
	}
	numAtoms, err := fixedInt(counts, 0, 3)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeSDFParseFailed, "atom count")
	}
	numBonds, err := fixedInt(counts, 3, 6)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeSDFParseFailed, "bond count")
	}

	atoms := make([]molecule.Atom, numAtoms)
	for i := 0; i < numAtoms; i++ {
		if !sc.Scan() {
			return nil, false, errors.New(errors.ErrCodeSDFParseFailed, "truncated atom block")
		}
		line := sc.Text()
		if len(line) < 34 {
			return nil, false, errors.Newf(errors.ErrCodeSDFParseFailed, "short atom line %q", line)
		}
		atoms[i] = molecule.Atom{Element: strings.TrimSpace(line[31:34])}
	}

	bonds := make([]molecule.Bond, numBonds)
	for i := 0; i < numBonds; i++ {
		if !sc.Scan() {
			return nil, false, errors.New(errors.ErrCodeSDFParseFailed, "truncated bond block")
		}
		line := sc.Text()
		a, err := fixedInt(line, 0, 3)
		if err != nil {
			return nil, false, errors.Wrap(err, errors.ErrCodeSDFParseFailed, "bond atom index")
		}
		b, err := fixedInt(line, 3, 6)
		if err != nil {
			return nil, false, errors.Wrap(err, errors.ErrCodeSDFParseFailed, "bond atom index")
		}
		order, err := fixedInt(line, 6, 9)
		if err != nil {
			return nil, false, errors.Wrap(err, errors.ErrCodeSDFParseFailed, "bond order")
		}
		if order < 1 || order > 3 {
			return nil, false, errors.Newf(errors.ErrCodeSDFParseFailed,
				"unsupported bond order %d (kekulized input required)", order)
		}
		bonds[i] = molecule.Bond{A: a - 1, B: b - 1, Order: molecule.BondOrder(order)}
	}

	// Properties block through M END, then the data items until "$$$$".
	more := false
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "M  CHG") {
			if err := applyCharges(line, atoms); err != nil {
				return nil, false, err
			}
		}
		if strings.HasPrefix(line, "$$$$") {
			more = true
			break
		}
	}

	g, err := molecule.NewGraph(title, atoms, bonds)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeSDFParseFailed, "record "+title)
	}
	return g, more, nil
}

// applyCharges parses an "M  CHG nn8 aaa vvv ..." property line.
func applyCharges(line string, atoms []molecule.Atom) error {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return errors.Newf(errors.ErrCodeSDFParseFailed, "malformed charge line %q", line)
	}
	n, err := strconv.Atoi(fields[2])
	if err != nil || len(fields) != 3+2*n {
		return errors.Newf(errors.ErrCodeSDFParseFailed, "malformed charge line %q", line)
	}
	for i := 0; i < n; i++ {
		idx, err1 := strconv.Atoi(fields[3+2*i])
		chg, err2 := strconv.Atoi(fields[4+2*i])
		if err1 != nil || err2 != nil || idx < 1 || idx > len(atoms) {
			return errors.Newf(errors.ErrCodeSDFParseFailed, "malformed charge line %q", line)
		}
		atoms[idx-1].FormalCharge = chg
	}
	return nil
}

// fixedInt parses the fixed-width integer field line[from:to].
func fixedInt(line string, from, to int) (int, error) {
	if len(line) < to {
		to = len(line)
	}
	if from >= to {
		return 0, errors.Newf(errors.ErrCodeSDFParseFailed, "field %d:%d past end of line", from, to)
	}
	return strconv.Atoi(strings.TrimSpace(line[from:to]))
}
