// Copyright 2024-2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package optimize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// problem carries the shared state of a single optimization run: the
// mean vector, the original covariance matrix (used for realized
// statistics), and the regularized copy the solver works on.
type problem struct {
	n              int
	mu             []float64
	sigma          *mat.SymDense
	reg            *mat.SymDense
	regularization float64
}

func newProblem(mu []float64, sigma *mat.SymDense) (*problem, error) {
	n := len(mu)
	if n == 0 {
		return nil, ErrNoAssets
	}
	if sigma.SymmetricDim() != n {
		return nil, fmt.Errorf("%w: %d means, %d x %d covariance", ErrDimensionMismatch, n, sigma.SymmetricDim(), sigma.SymmetricDim())
	}

	prob := &problem{n: n, mu: mu, sigma: sigma}
	prob.reg, prob.regularization = condition(sigma)
	return prob, nil
}

// condition checks the eigenvalue spectrum of sigma and, when the
// smallest eigenvalue falls below eigenFloor, returns a copy with
// ridge added along the diagonal. Near-singular covariance matrices
// (highly correlated or zero-variance assets) otherwise drive the
// solver toward unbounded weights.
func condition(sigma *mat.SymDense) (*mat.SymDense, float64) {
	n := sigma.SymmetricDim()

	var eig mat.EigenSym
	if ok := eig.Factorize(sigma, false); ok {
		values := eig.Values(nil)
		minEigen := values[0]
		for _, v := range values[1:] {
			minEigen = math.Min(minEigen, v)
		}
		if minEigen >= eigenFloor {
			return sigma, 0
		}
	}

	reg := mat.NewSymDense(n, nil)
	reg.CopySym(sigma)
	for ii := 0; ii < n; ii++ {
		reg.SetSym(ii, ii, reg.At(ii, ii)+ridge)
	}
	return reg, ridge
}

// degenerate short-circuits the single-asset case: the only feasible
// portfolio is 100% in that asset, so the solver never runs.
func (prob *problem) degenerate() (*Solution, bool) {
	if prob.n != 1 {
		return nil, false
	}
	return &Solution{
		Weights:    []float64{1.0},
		Return:     prob.mu[0],
		Volatility: math.Sqrt(math.Max(prob.sigma.At(0, 0), 0)),
	}, true
}

// expectedReturn computes μᵗw
func (prob *problem) expectedReturn(w []float64) float64 {
	var ret float64
	for ii, x := range w {
		ret += prob.mu[ii] * x
	}
	return ret
}

// variance computes wᵗΣw against the regularized covariance matrix
func (prob *problem) variance(w []float64) float64 {
	var variance float64
	for ii := 0; ii < prob.n; ii++ {
		for jj := 0; jj < prob.n; jj++ {
			variance += w[ii] * w[jj] * prob.reg.At(ii, jj)
		}
	}
	return variance
}

// varianceGrad writes 2Σw into grad
func (prob *problem) varianceGrad(grad []float64, w []float64) {
	for ii := 0; ii < prob.n; ii++ {
		grad[ii] = 0
		for jj := 0; jj < prob.n; jj++ {
			grad[ii] += 2 * prob.reg.At(ii, jj) * w[jj]
		}
	}
}

// project clamps every weight to [0, 1]
func (prob *problem) project(x []float64) []float64 {
	proj := make([]float64, len(x))
	for ii, v := range x {
		proj[ii] = math.Max(0, math.Min(1, v))
	}
	return proj
}

// equalWeights is the always-feasible starting point
func (prob *problem) equalWeights() []float64 {
	w := make([]float64, prob.n)
	for ii := range w {
		w[ii] = 1.0 / float64(prob.n)
	}
	return w
}

// minVarVertex is the single-asset portfolio with the lowest variance,
// used as an additional starting point
func (prob *problem) minVarVertex() []float64 {
	best := 0
	for ii := 1; ii < prob.n; ii++ {
		if prob.reg.At(ii, ii) < prob.reg.At(best, best) {
			best = ii
		}
	}
	w := make([]float64, prob.n)
	w[best] = 1.0
	return w
}

// maxSharpeVertex is the single-asset portfolio with the highest Sharpe
// ratio, used as an additional starting point
func (prob *problem) maxSharpeVertex(riskFree float64) []float64 {
	best := 0
	bestSharpe := math.Inf(-1)
	for ii := 0; ii < prob.n; ii++ {
		sd := math.Sqrt(math.Max(prob.reg.At(ii, ii), eigenFloor))
		sharpe := (prob.mu[ii] - riskFree) / sd
		if sharpe > bestSharpe {
			bestSharpe = sharpe
			best = ii
		}
	}
	w := make([]float64, prob.n)
	w[best] = 1.0
	return w
}

// solve minimizes obj + sumPenalty*(Σw - 1)² over the projected box
// with BFGS, falling back to Nelder-Mead when BFGS fails. Iteration and
// evaluation counts are capped so a pathological input cannot stall a
// request.
func (prob *problem) solve(obj func([]float64) float64, grad func([]float64, []float64), initial []float64) ([]float64, error) {
	p := optimize.Problem{
		Func: func(x []float64) float64 {
			xProj := prob.project(x)
			sum := 0.0
			for _, v := range xProj {
				sum += v
			}
			return obj(xProj) + sumPenalty*(sum-1.0)*(sum-1.0)
		},
		Grad: func(g, x []float64) {
			xProj := prob.project(x)
			grad(g, xProj)
			sum := 0.0
			for _, v := range xProj {
				sum += v
			}
			for ii := range g {
				g[ii] += 2 * sumPenalty * (sum - 1.0)
			}
		},
	}

	settings := &optimize.Settings{
		MajorIterations: maxMajorIterations,
		FuncEvaluations: maxFuncEvaluations,
	}

	x0 := make([]float64, len(initial))
	copy(x0, initial)

	result, err := optimize.Minimize(p, x0, settings, &optimize.BFGS{})
	if err != nil || !converged(result.Status) {
		copy(x0, initial)
		result, err = optimize.Minimize(p, x0, settings, &optimize.NelderMead{})
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNotConverged, err.Error())
		}
		if !converged(result.Status) {
			return nil, fmt.Errorf("%w: status %s", ErrNotConverged, result.Status)
		}
	}

	return prob.project(result.X), nil
}

// solveMultiStart runs solve from equal weights and from an additional
// vertex start, returning whichever converged solution scores lower on
// the objective. Boundary optima (a zero-volatility asset dominating)
// are reached reliably from the vertex start.
func (prob *problem) solveMultiStart(obj func([]float64) float64, grad func([]float64, []float64), vertex []float64) ([]float64, error) {
	var best []float64
	var bestScore float64
	var firstErr error

	for _, start := range [][]float64{prob.equalWeights(), vertex} {
		w, err := prob.solve(obj, grad, start)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		score := obj(normalize(w))
		if best == nil || score < bestScore {
			best = w
			bestScore = score
		}
	}

	if best == nil {
		return nil, firstErr
	}
	return best, nil
}

// finalize clamps negatives, renormalizes the weights onto the simplex,
// and computes the realized return and volatility against the original
// (unregularized) covariance matrix.
func (prob *problem) finalize(w []float64) *Solution {
	weights := normalize(w)

	var variance float64
	for ii := 0; ii < prob.n; ii++ {
		for jj := 0; jj < prob.n; jj++ {
			variance += weights[ii] * weights[jj] * prob.sigma.At(ii, jj)
		}
	}

	sol := &Solution{
		Weights:        weights,
		Return:         prob.expectedReturn(weights),
		Volatility:     math.Sqrt(math.Max(variance, 0)),
		Regularization: prob.regularization,
	}
	return sol
}

func normalize(w []float64) []float64 {
	weights := make([]float64, len(w))
	sum := 0.0
	for ii, v := range w {
		weights[ii] = math.Max(0, v)
		sum += weights[ii]
	}
	if sum > 0 {
		for ii := range weights {
			weights[ii] /= sum
		}
	}
	return weights
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence, optimize.FunctionThreshold, optimize.StepConvergence:
		return true
	}
	return false
}
