package l5seeds

import (
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/tpctrack/internal/tpc/l3kalman"
)

// propagateVariance returns D·diag(v)·Dᵗ as a packed symmetric matrix.
func propagateVariance(d [5][nInputs]float64, v [nInputs]float64) l3kalman.Sym5 {
	dm := mat.NewDense(5, nInputs, nil)
	for i := 0; i < 5; i++ {
		for j := 0; j < nInputs; j++ {
			dm.Set(i, j, d[i][j])
		}
	}
	sigma := mat.NewDiagDense(nInputs, v[:])

	var ds, c mat.Dense
	ds.Mul(dm, sigma)
	c.Mul(&ds, dm.T())

	var out l3kalman.Sym5
	for i := 0; i < 5; i++ {
		for j := 0; j <= i; j++ {
			out.Set(i, j, 0.5*(c.At(i, j)+c.At(j, i)))
		}
	}
	return out
}
