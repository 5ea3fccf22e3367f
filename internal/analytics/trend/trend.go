// Package trend fits polynomial trends to series by linear least squares.
package trend

import (
	"errors"
	"fmt"
	"math"

	"github.com/soltixdb/trendscope/internal/analytics"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MaxDegree is the highest polynomial degree accepted by Fit
const MaxDegree = 10

var (
	// ErrSingularDesign is returned when the design matrix does not have full column rank,
	// for example when the degree is not lower than the number of distinct positions.
	ErrSingularDesign = errors.New("singular design matrix")

	// ErrInvalidDegree is returned for a degree outside 0..MaxDegree
	ErrInvalidDegree = errors.New("invalid polynomial degree")
)

// Model is a fitted polynomial trend over positions 0..n-1
type Model struct {
	Degree       int       `json:"degree"`
	Coefficients []float64 `json:"coeffs"` // Ascending power order, length Degree+1
	Values       []float64 `json:"values"` // Fitted value at every input position
	RSquared     float64   `json:"r_squared"`
	RMSE         float64   `json:"rmse"`
}

// Fit returns the least-squares coefficients of a polynomial of the given degree through
// (xs, ys), lowest order first. Missing ys count as zero.
//
// The Vandermonde design is column-scaled to unit norm and solved through a thin SVD,
// which keeps moderate degrees usable where the normal equations would lose precision.
func Fit(xs, ys []float64, degree int) ([]float64, error) {
	if degree < 0 || degree > MaxDegree {
		return nil, fmt.Errorf("%w: %d (must be 0..%d)", ErrInvalidDegree, degree, MaxDegree)
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("length mismatch: %d positions, %d values", len(xs), len(ys))
	}

	rows, cols := len(xs), degree+1
	if rows == 0 {
		return nil, fmt.Errorf("%w: no points to fit", ErrSingularDesign)
	}

	design := mat.NewDense(rows, cols, nil)
	for i, x := range xs {
		p := 1.0
		for j := 0; j < cols; j++ {
			design.Set(i, j, p)
			p *= x
		}
	}

	scale := make([]float64, cols)
	for j := 0; j < cols; j++ {
		norm := mat.Norm(design.ColView(j), 2)
		if norm == 0 || math.IsInf(norm, 0) || math.IsNaN(norm) {
			return nil, fmt.Errorf("%w: column x^%d is degenerate", ErrSingularDesign, j)
		}
		scale[j] = norm
		for i := 0; i < rows; i++ {
			design.Set(i, j, design.At(i, j)/norm)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(design, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: SVD factorization failed", ErrSingularDesign)
	}

	rcond := math.Nextafter(1, 2) - 1
	rcond *= float64(max(rows, cols))
	if rank := svd.Rank(rcond); rank < cols {
		return nil, fmt.Errorf("%w: rank %d for degree %d over %d points", ErrSingularDesign, rank, degree, rows)
	}

	b := mat.NewVecDense(rows, analytics.Series(ys).Filled(0))
	var solution mat.VecDense
	svd.SolveVecTo(&solution, b, cols)

	coeffs := make([]float64, cols)
	for j := range coeffs {
		coeffs[j] = solution.AtVec(j) / scale[j]
	}
	return coeffs, nil
}

// Predict evaluates the ascending-power polynomial coeffs at every x
func Predict(coeffs, xs []float64) []float64 {
	values := make([]float64, len(xs))
	for i, x := range xs {
		var v float64
		for j := len(coeffs) - 1; j >= 0; j-- {
			v = v*x + coeffs[j]
		}
		values[i] = v
	}
	return values
}

// FitSeries fits s over positions 0..n-1 and reports the fitted values with their
// goodness of fit against the zero-imputed series.
func FitSeries(s analytics.Series, degree int) (*Model, error) {
	xs := s.Positions()
	ys := s.Filled(0)

	coeffs, err := Fit(xs, ys, degree)
	if err != nil {
		return nil, err
	}

	fitted := Predict(coeffs, xs)

	residuals := make([]float64, len(ys))
	floats.SubTo(residuals, ys, fitted)
	rmse := math.Sqrt(floats.Dot(residuals, residuals) / float64(len(ys)))

	return &Model{
		Degree:       degree,
		Coefficients: coeffs,
		Values:       fitted,
		RSquared:     stat.RSquaredFrom(fitted, ys, nil),
		RMSE:         rmse,
	}, nil
}
