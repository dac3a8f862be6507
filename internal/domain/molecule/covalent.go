package molecule

// covalentRadii holds single-bond covalent radii in ångströms for the
// elements commonly found in macrocyclic scaffolds.  Values follow the
// Cordero 2008 compilation, rounded to two decimals.
var covalentRadii = map[string]float64{
	"H":  0.31,
	"B":  0.84,
	"C":  0.76,
	"N":  0.71,
	"O":  0.66,
	"F":  0.57,
	"Si": 1.11,
	"P":  1.07,
	"S":  1.05,
	"Cl": 1.02,
	"Br": 1.20,
	"I":  1.39,
}

// defaultCovalentRadius is used for elements missing from the table.
const defaultCovalentRadius = 0.77

// CovalentRadius returns the single-bond covalent radius for an element
// symbol, falling back to a carbon-like default for unknown elements.
func CovalentRadius(element string) float64 {
	if r, ok := covalentRadii[element]; ok {
		return r
	}
	return defaultCovalentRadius
}

// bondOrderScale shortens ideal lengths for multiple bonds.
var bondOrderScale = map[BondOrder]float64{
	BondSingle: 1.0,
	BondDouble: 0.87,
	BondTriple: 0.78,
}

// IdealBondLength returns the expected equilibrium length in ångströms for a
// bond between two elements at the given order, from the sum of covalent
// radii scaled by bond order.
func IdealBondLength(a, b string, order BondOrder) float64 {
	scale, ok := bondOrderScale[order]
	if !ok {
		scale = 1.0
	}
	return (CovalentRadius(a) + CovalentRadius(b)) * scale
}
