package l3kalman

import "math"

// Sym5 is a symmetric 5×5 matrix stored as its lower triangle in row order:
// 00, 10,11, 20,21,22, 30,31,32,33, 40,41,42,43,44.
type Sym5 [15]float64

// Matrix5 is a dense 5×5 matrix, used for Jacobians.
type Matrix5 [5][5]float64

func symIndex(i, j int) int {
	if i < j {
		i, j = j, i
	}
	return i*(i+1)/2 + j
}

// Identity5 returns the 5×5 identity.
func Identity5() Matrix5 {
	var m Matrix5
	for i := 0; i < 5; i++ {
		m[i][i] = 1
	}
	return m
}

// DiagSym5 returns a diagonal matrix with the given diagonal.
func DiagSym5(d [5]float64) Sym5 {
	var s Sym5
	for i := 0; i < 5; i++ {
		s[symIndex(i, i)] = d[i]
	}
	return s
}

// At returns element (i, j).
func (s *Sym5) At(i, j int) float64 { return s[symIndex(i, j)] }

// Set assigns element (i, j) and, by symmetry, (j, i).
func (s *Sym5) Set(i, j int, v float64) { s[symIndex(i, j)] = v }

// Add increments element (i, j) and, by symmetry, (j, i).
func (s *Sym5) Add(i, j int, v float64) { s[symIndex(i, j)] += v }

// Diag returns the diagonal.
func (s *Sym5) Diag() [5]float64 {
	return [5]float64{s[0], s[2], s[5], s[9], s[14]}
}

// Dense expands s into a full matrix.
func (s *Sym5) Dense() Matrix5 {
	var m Matrix5
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			m[i][j] = s[symIndex(i, j)]
		}
	}
	return m
}

// Similarity returns J·S·Jᵗ. Only the 15 unique entries of the result are
// computed.
func (s *Sym5) Similarity(j *Matrix5) Sym5 {
	var js Matrix5
	for i := 0; i < 5; i++ {
		for k := 0; k < 5; k++ {
			var sum float64
			for l := 0; l < 5; l++ {
				if j[i][l] != 0 {
					sum += j[i][l] * s[symIndex(l, k)]
				}
			}
			js[i][k] = sum
		}
	}
	var out Sym5
	for i := 0; i < 5; i++ {
		for c := 0; c <= i; c++ {
			var sum float64
			for k := 0; k < 5; k++ {
				sum += js[i][k] * j[c][k]
			}
			out[symIndex(i, c)] = sum
		}
	}
	return out
}

// IsFinite reports whether every entry is neither NaN nor ±Inf.
func (s *Sym5) IsFinite() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// DiagNonNegative reports whether every diagonal entry is >= 0.
func (s *Sym5) DiagNonNegative() bool {
	for _, v := range s.Diag() {
		if v < 0 {
			return false
		}
	}
	return true
}

// propagateCov applies F·C·Fᵗ for the transport Jacobian F = I + f where
// the only non-zero entries of f are f02, f04, f12, f13, f14 and f24.
//
// With B = C·fᵗ (non-zero in columns 0..2) and A = f·B (non-zero in the
// upper-left 3×3 block), F·C·Fᵗ = C + B + Bᵗ + A.
func propagateCov(c *Sym5, f02, f04, f12, f13, f14, f24 float64) Sym5 {
	c00, c10, c11 := c[0], c[1], c[2]
	c20, c21, c22 := c[3], c[4], c[5]
	c30, c31, c32, c33 := c[6], c[7], c[8], c[9]
	c40, c41, c42, c43, c44 := c[10], c[11], c[12], c[13], c[14]

	// b_ij = B[i][j]
	b00 := f02*c20 + f04*c40
	b01 := f12*c20 + f13*c30 + f14*c40
	b02 := f24 * c40
	b10 := f02*c21 + f04*c41
	b11 := f12*c21 + f13*c31 + f14*c41
	b12 := f24 * c41
	b20 := f02*c22 + f04*c42
	b21 := f12*c22 + f13*c32 + f14*c42
	b22 := f24 * c42
	b30 := f02*c32 + f04*c43
	b31 := f12*c32 + f13*c33 + f14*c43
	b32 := f24 * c43
	b40 := f02*c42 + f04*c44
	b41 := f12*c42 + f13*c43 + f14*c44
	b42 := f24 * c44

	a00 := f02*b20 + f04*b40
	a01 := f02*b21 + f04*b41
	a02 := f02*b22 + f04*b42
	a11 := f12*b21 + f13*b31 + f14*b41
	a12 := f12*b22 + f13*b32 + f14*b42
	a22 := f24 * b42

	var out Sym5
	out[0] = c00 + 2*b00 + a00
	out[1] = c10 + b10 + b01 + a01
	out[2] = c11 + 2*b11 + a11
	out[3] = c20 + b20 + b02 + a02
	out[4] = c21 + b21 + b12 + a12
	out[5] = c22 + 2*b22 + a22
	out[6] = c30 + b30
	out[7] = c31 + b31
	out[8] = c32 + b32
	out[9] = c33
	out[10] = c40 + b40
	out[11] = c41 + b41
	out[12] = c42 + b42
	out[13] = c43
	out[14] = c44
	return out
}
