package registry

import (
	"fmt"
	"math"
)

// AlgorithmPowerRidge is the algorithm identity of the default pipeline and
// the suffix of every persisted artifact key.
const AlgorithmPowerRidge = "PowerRidge"

// lambdaGrid is the candidate set for the per-feature power transform
// exponent. Zero selects the log branch.
var lambdaGrid = []float64{-1, -0.5, 0, 0.5, 1, 2}

// PowerRidge is a two-stage regression pipeline: a per-feature Yeo-Johnson
// power transform (variance stabilization) with standardization, followed by
// ridge regression solved by normal equations. Fit once, never mutated after.
type PowerRidge struct {
	// Alpha is the L2 regularization strength.
	Alpha float64 `json:"alpha"`
	// Lambdas holds the selected power-transform exponent per feature.
	Lambdas []float64 `json:"lambdas"`
	// Means and Stds standardize the transformed features.
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
	// Coef and Intercept define the fitted linear model.
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// NewPowerRidge creates an unfitted pipeline with default regularization.
func NewPowerRidge() *PowerRidge {
	return &PowerRidge{Alpha: 1.0}
}

// Fit estimates the transform parameters and regression weights from the
// given design matrix and response.
func (p *PowerRidge) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("invalid training set: %d rows, %d responses", len(X), len(y))
	}
	nFeatures := len(X[0])
	nRows := len(X)

	p.Lambdas = make([]float64, nFeatures)
	p.Means = make([]float64, nFeatures)
	p.Stds = make([]float64, nFeatures)

	// Transform column by column, then standardize.
	Z := make([][]float64, nRows)
	for i := range Z {
		Z[i] = make([]float64, nFeatures)
	}
	col := make([]float64, nRows)
	for j := 0; j < nFeatures; j++ {
		for i := 0; i < nRows; i++ {
			col[i] = X[i][j]
		}
		lambda := selectLambda(col)
		p.Lambdas[j] = lambda
		for i := 0; i < nRows; i++ {
			col[i] = yeoJohnson(col[i], lambda)
		}
		mean := meanOf(col)
		std := stdOf(col, mean)
		if std == 0 {
			std = 1
		}
		p.Means[j] = mean
		p.Stds[j] = std
		for i := 0; i < nRows; i++ {
			Z[i][j] = (col[i] - mean) / std
		}
	}

	// With standardized columns the intercept decouples to the response mean.
	yMean := meanOf(y)
	p.Intercept = yMean

	// Normal equations: (Z'Z + alpha*I) coef = Z'(y - yMean).
	a := make([][]float64, nFeatures)
	b := make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		a[j] = make([]float64, nFeatures)
		for k := 0; k < nFeatures; k++ {
			var s float64
			for i := 0; i < nRows; i++ {
				s += Z[i][j] * Z[i][k]
			}
			a[j][k] = s
		}
		a[j][j] += p.Alpha
		var s float64
		for i := 0; i < nRows; i++ {
			s += Z[i][j] * (y[i] - yMean)
		}
		b[j] = s
	}

	coef, err := solveLinearSystem(a, b)
	if err != nil {
		return fmt.Errorf("fitting ridge regression: %w", err)
	}
	p.Coef = coef
	return nil
}

// Predict returns the pipeline's prediction for a single feature vector.
func (p *PowerRidge) Predict(features []float64) (float64, error) {
	if len(p.Coef) == 0 {
		return 0, fmt.Errorf("pipeline is not fitted")
	}
	if len(features) != len(p.Coef) {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d", len(features), len(p.Coef))
	}
	pred := p.Intercept
	for j, v := range features {
		z := (yeoJohnson(v, p.Lambdas[j]) - p.Means[j]) / p.Stds[j]
		pred += p.Coef[j] * z
	}
	return pred, nil
}

// yeoJohnson applies the Yeo-Johnson transform, defined for any real input.
func yeoJohnson(x float64, lambda float64) float64 {
	if x >= 0 {
		if lambda == 0 {
			return math.Log1p(x)
		}
		return (math.Pow(x+1, lambda) - 1) / lambda
	}
	if lambda == 2 {
		return -math.Log1p(-x)
	}
	return -(math.Pow(1-x, 2-lambda) - 1) / (2 - lambda)
}

// selectLambda picks the grid exponent that minimizes the absolute skewness
// of the transformed column. A crude but dependency-free stand-in for the
// maximum-likelihood estimate.
func selectLambda(col []float64) float64 {
	best := 1.0
	bestSkew := math.Inf(1)
	transformed := make([]float64, len(col))
	for _, lambda := range lambdaGrid {
		for i, v := range col {
			transformed[i] = yeoJohnson(v, lambda)
		}
		s := math.Abs(skewness(transformed))
		if s < bestSkew {
			bestSkew = s
			best = lambda
		}
	}
	return best
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdOf(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sumSquares float64
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}

func skewness(values []float64) float64 {
	mean := meanOf(values)
	std := stdOf(values, mean)
	if std == 0 {
		return 0
	}
	var s float64
	for _, v := range values {
		d := (v - mean) / std
		s += d * d * d
	}
	return s / float64(len(values))
}

// solveLinearSystem solves a*x = b by Gaussian elimination with partial
// pivoting. The ridge diagonal keeps the system well conditioned.
func solveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < n; row++ {
			factor := a[row][col] / a[col][col]
			for k := col; k < n; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < n; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, nil
}
