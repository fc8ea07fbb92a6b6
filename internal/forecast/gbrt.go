package forecast

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/demandcast/internal/contracts"
	"github.com/wonny/demandcast/internal/forecastconfig"
)

// =============================================================================
// Gradient-boosted regression trees (squared loss)
// =============================================================================

// minGain ignores splits that only move float noise
const minGain = 1e-12

type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      int
	right     int
}

type tree struct {
	nodes []node
}

func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.leaf {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// Ensemble is a fitted GBRT. Immutable after FitGBRT returns.
type Ensemble struct {
	init  float64
	rate  float64
	width int
	trees []tree
	gain  []float64 // total SSE reduction per feature
}

// FitGBRT trains an ensemble on X (rows x features) and y.
// Rows are put in canonical order first, so the result depends only on the multiset of rows.
func FitGBRT(X [][]float64, y []float64, p forecastconfig.GBRT) (*Ensemble, error) {
	if err := checkTrainingMatrix(X, y); err != nil {
		return nil, err
	}
	if p.NumTrees < 1 || p.MaxDepth < 1 || p.LearningRate <= 0 || p.MinSamplesLeaf < 1 {
		return nil, contracts.NewConfigurationError("invalid GBRT parameters %+v", p)
	}

	X, y = canonicalOrder(X, y)
	n, width := len(X), len(X[0])

	e := &Ensemble{
		init:  floats.Sum(y) / float64(n),
		rate:  p.LearningRate,
		width: width,
		trees: make([]tree, 0, p.NumTrees),
		gain:  make([]float64, width),
	}

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = e.init
	}
	residual := make([]float64, n)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	for m := 0; m < p.NumTrees; m++ {
		floats.SubTo(residual, y, pred)

		g := grower{X: X, r: residual, p: p, gain: e.gain}
		g.grow(all, 0)
		t := tree{nodes: g.nodes}

		for i := range pred {
			pred[i] += e.rate * t.predict(X[i])
		}
		e.trees = append(e.trees, t)
	}

	return e, nil
}

// Width returns the number of features the ensemble was trained on
func (e *Ensemble) Width() int {
	return e.width
}

// Gain returns a copy of the per-feature split gain
func (e *Ensemble) Gain() []float64 {
	return append([]float64(nil), e.gain...)
}

// Predict scores one feature vector (unclamped)
func (e *Ensemble) Predict(x []float64) float64 {
	out := e.init
	for i := range e.trees {
		out += e.rate * e.trees[i].predict(x)
	}
	return out
}

// grower builds one tree depth-first; node 0 is the root
type grower struct {
	X     [][]float64
	r     []float64
	p     forecastconfig.GBRT
	nodes []node
	gain  []float64
}

func (g *grower) grow(idx []int, depth int) int {
	id := len(g.nodes)
	g.nodes = append(g.nodes, node{leaf: true, value: g.mean(idx)})

	if depth >= g.p.MaxDepth || len(idx) < 2*g.p.MinSamplesLeaf {
		return id
	}

	s, ok := g.bestSplit(idx)
	if !ok {
		return id
	}
	g.gain[s.feature] += s.gain

	var left, right []int
	for _, i := range idx {
		if g.X[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.nodes[id] = node{feature: s.feature, threshold: s.threshold, left: l, right: r}
	return id
}

func (g *grower) mean(idx []int) float64 {
	sum := 0.0
	for _, i := range idx {
		sum += g.r[i]
	}
	return sum / float64(len(idx))
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

// bestSplit scans every feature and every cut between distinct values.
// Strict improvement keeps the lower feature index, then the lower threshold.
func (g *grower) bestSplit(idx []int) (split, bool) {
	n := len(idx)
	total := 0.0
	for _, i := range idx {
		total += g.r[i]
	}
	parent := total * total / float64(n)

	best := split{gain: minGain}
	found := false
	order := make([]int, n)

	for f := 0; f < len(g.X[idx[0]]); f++ {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool {
			return g.X[order[a]][f] < g.X[order[b]][f]
		})

		sumL := 0.0
		for k := 1; k < n; k++ {
			sumL += g.r[order[k-1]]
			lo, hi := g.X[order[k-1]][f], g.X[order[k]][f]
			if lo == hi || k < g.p.MinSamplesLeaf || n-k < g.p.MinSamplesLeaf {
				continue
			}
			sumR := total - sumL
			gain := sumL*sumL/float64(k) + sumR*sumR/float64(n-k) - parent
			if gain > best.gain {
				best = split{feature: f, threshold: lo + (hi-lo)/2, gain: gain}
				found = true
			}
		}
	}

	return best, found
}

// canonicalOrder sorts rows lexicographically by features, then target
func canonicalOrder(X [][]float64, y []float64) ([][]float64, []float64) {
	perm := make([]int, len(X))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		xa, xb := X[perm[a]], X[perm[b]]
		for f := range xa {
			if xa[f] != xb[f] {
				return xa[f] < xb[f]
			}
		}
		return y[perm[a]] < y[perm[b]]
	})

	outX := make([][]float64, len(X))
	outY := make([]float64, len(y))
	for i, p := range perm {
		outX[i] = X[p]
		outY[i] = y[p]
	}
	return outX, outY
}

func checkTrainingMatrix(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return contracts.NewDataError("empty training batch")
	}
	if len(X) != len(y) {
		return contracts.NewDataError("%d feature rows but %d targets", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return contracts.NewDataError("training rows have no features")
	}
	for i, x := range X {
		if err := checkVector(x, width, i); err != nil {
			return err
		}
		if !finite(y[i]) {
			return contracts.NewDataError("row %d: non-finite target %v", i, y[i])
		}
	}
	return nil
}

func checkVector(x []float64, width, row int) error {
	if len(x) != width {
		return contracts.NewDataError("row %d: %d features, expected %d", row, len(x), width)
	}
	for f, v := range x {
		if !finite(v) {
			return contracts.NewDataError("row %d: non-finite feature %d (%v)", row, f, v)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
