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

// Package optimize solves the long-only mean-variance portfolio
// problems: minimum variance, maximum Sharpe, and the efficient
// frontier. Constraints (weights on the unit simplex) are enforced with
// a quadratic penalty plus projection to [0, 1]; near-singular
// covariance matrices are ridge-regularized before solving.
package optimize

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoAssets          = errors.New("no assets provided")
	ErrDimensionMismatch = errors.New("mean vector and covariance matrix dimensions do not match")
	ErrNotConverged      = errors.New("optimizer did not converge")
)

const (
	// sumPenalty weights the (Σw - 1)² term of the objective
	sumPenalty = 1e4

	// targetPenalty weights the (wᵗμ - target)² equality term used for
	// frontier points; stiffer than sumPenalty so achieved returns stay
	// within targetTol of the requested target
	targetPenalty = 1e6

	// targetTol is the absolute tolerance used to classify a frontier
	// solve as on-target; solves farther from their target are dropped
	targetTol = 1e-5

	// eigenFloor is the smallest acceptable eigenvalue of the covariance
	// matrix; below it the matrix is treated as near-singular
	eigenFloor = 1e-10

	// ridge is the multiple of the identity added to a near-singular
	// covariance matrix
	ridge = 1e-8

	maxMajorIterations = 500
	maxFuncEvaluations = 10_000
)

// Solution is an optimal portfolio: weights aligned with the caller's
// asset order plus the realized return and volatility, in the same
// (daily) units as the inputs.
type Solution struct {
	Weights        []float64 `json:"weights"`
	Return         float64   `json:"return"`
	Volatility     float64   `json:"volatility"`
	Regularization float64   `json:"regularization,omitempty"`
}

// FrontierPoint is one (volatility, expected return) point on the
// efficient frontier with the weights that achieve it.
type FrontierPoint struct {
	Return     float64   `json:"return"`
	Volatility float64   `json:"volatility"`
	Weights    []float64 `json:"weights"`
}

// MinVariance solves min wᵗΣw subject to Σw = 1, w >= 0. Equal
// weighting is always feasible, so an error indicates a solver or
// numerical problem, not infeasibility.
func MinVariance(mu []float64, sigma *mat.SymDense) (*Solution, error) {
	prob, err := newProblem(mu, sigma)
	if err != nil {
		return nil, err
	}
	if sol, ok := prob.degenerate(); ok {
		return sol, nil
	}

	obj := func(w []float64) float64 { return prob.variance(w) }
	grad := func(grad, w []float64) { prob.varianceGrad(grad, w) }

	best, err := prob.solveMultiStart(obj, grad, prob.minVarVertex())
	if err != nil {
		return nil, err
	}
	return prob.finalize(best), nil
}

// MaxSharpe solves max (wᵗμ - riskFree)/√(wᵗΣw) subject to Σw = 1,
// w >= 0. riskFree is a per-period (daily) rate. When multiple weight
// vectors achieve the maximum within tolerance any one of them is
// returned.
func MaxSharpe(mu []float64, sigma *mat.SymDense, riskFree float64) (*Solution, error) {
	prob, err := newProblem(mu, sigma)
	if err != nil {
		return nil, err
	}
	if sol, ok := prob.degenerate(); ok {
		return sol, nil
	}

	obj := func(w []float64) float64 {
		sd := math.Sqrt(math.Max(prob.variance(w), eigenFloor))
		return -(prob.expectedReturn(w) - riskFree) / sd
	}
	grad := func(grad, w []float64) {
		variance := math.Max(prob.variance(w), eigenFloor)
		sd := math.Sqrt(variance)
		excess := prob.expectedReturn(w) - riskFree
		for ii := 0; ii < prob.n; ii++ {
			var dVar float64
			for jj := 0; jj < prob.n; jj++ {
				dVar += 2 * prob.reg.At(ii, jj) * w[jj]
			}
			grad[ii] = -prob.mu[ii]/sd + excess*dVar/(2*variance*sd)
		}
	}

	best, err := prob.solveMultiStart(obj, grad, prob.maxSharpeVertex(riskFree))
	if err != nil {
		return nil, err
	}
	return prob.finalize(best), nil
}

// Frontier traces the efficient frontier with the given number of
// target returns spanning the minimum-variance portfolio's return up to
// the maximum single-asset mean return. Targets for which the solver
// fails or lands off-target are dropped; the returned points have
// strictly increasing returns.
func Frontier(mu []float64, sigma *mat.SymDense, points int) ([]FrontierPoint, error) {
	prob, err := newProblem(mu, sigma)
	if err != nil {
		return nil, err
	}
	if sol, ok := prob.degenerate(); ok {
		return []FrontierPoint{{Return: sol.Return, Volatility: sol.Volatility, Weights: sol.Weights}}, nil
	}

	minVar, err := MinVariance(mu, sigma)
	if err != nil {
		return nil, fmt.Errorf("cannot anchor frontier: %w", err)
	}

	rMin := minVar.Return
	rMax := mu[0]
	for _, r := range mu[1:] {
		rMax = math.Max(rMax, r)
	}

	frontier := []FrontierPoint{{Return: minVar.Return, Volatility: minVar.Volatility, Weights: minVar.Weights}}
	if points < 2 || rMax-rMin < 1e-12 {
		return frontier, nil
	}

	warmStart := minVar.Weights
	step := (rMax - rMin) / float64(points-1)
	for ii := 1; ii < points; ii++ {
		target := rMin + float64(ii)*step

		obj := func(w []float64) float64 {
			diff := prob.expectedReturn(w) - target
			return prob.variance(w) + targetPenalty*diff*diff
		}
		grad := func(grad, w []float64) {
			prob.varianceGrad(grad, w)
			diff := prob.expectedReturn(w) - target
			for jj := 0; jj < prob.n; jj++ {
				grad[jj] += 2 * targetPenalty * diff * prob.mu[jj]
			}
		}

		w, err := prob.solve(obj, grad, warmStart)
		if err != nil {
			log.Debug().Err(err).Float64("Target", target).Msg("dropping frontier point")
			continue
		}

		sol := prob.finalize(w)
		if math.Abs(sol.Return-target) > targetTol {
			log.Debug().Float64("Target", target).Float64("Achieved", sol.Return).Msg("dropping off-target frontier point")
			continue
		}

		// keep the upper branch only: returns must strictly increase
		if sol.Return <= frontier[len(frontier)-1].Return {
			continue
		}

		frontier = append(frontier, FrontierPoint{Return: sol.Return, Volatility: sol.Volatility, Weights: sol.Weights})
		warmStart = sol.Weights
	}

	return frontier, nil
}
