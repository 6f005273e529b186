// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package topics

import (
	"math"
	"math/rand/v2"
)

const maxIterations = 300

// KMeans clusters sparse vectors with Lloyd's algorithm and k-means++
// seeding. The best of NInit runs by inertia is kept.
type KMeans struct {
	K     int
	NInit int
	Seed  int64
}

// Clustering is the outcome of a KMeans fit.
type Clustering struct {
	// Labels holds the cluster index of each input vector.
	Labels []int

	// Centroids holds one dense vector of length dim per cluster.
	Centroids [][]float64

	// Inertia is the sum of squared distances to the assigned centroid.
	Inertia float64
}

// Fit clusters xs in a space of dimension dim. K is clamped to len(xs);
// no input yields an empty Clustering.
func (km KMeans) Fit(xs []SparseVec, dim int) Clustering {
	k := min(km.K, len(xs))
	if k <= 0 || dim <= 0 {
		return Clustering{}
	}
	nInit := km.NInit
	if nInit <= 0 {
		nInit = 1
	}

	seed := uint64(km.Seed)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	norms := make([]float64, len(xs))
	for i, x := range xs {
		norms[i] = sqNorm(x)
	}

	var best Clustering
	for run := 0; run < nInit; run++ {
		c := lloyd(xs, norms, seedPlusPlus(xs, norms, k, dim, rng), dim)
		if run == 0 || c.Inertia < best.Inertia {
			best = c
		}
	}
	return best
}

// seedPlusPlus picks k initial centroids: the first uniformly, each next
// one with probability proportional to its squared distance from the
// nearest centroid chosen so far.
func seedPlusPlus(xs []SparseVec, norms []float64, k, dim int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := rng.IntN(len(xs))
	centroids = append(centroids, densify(xs[first], dim))

	closest := make([]float64, len(xs))
	for i := range xs {
		closest[i] = sqDist(xs[i], norms[i], centroids[0], denseSqNorm(centroids[0]))
	}

	for len(centroids) < k {
		var total float64
		for _, d := range closest {
			total += d
		}
		next := 0
		if total > 0 {
			r := rng.Float64() * total
			for i, d := range closest {
				r -= d
				if r <= 0 {
					next = i
					break
				}
				next = i
			}
		} else {
			next = rng.IntN(len(xs))
		}
		c := densify(xs[next], dim)
		cn := denseSqNorm(c)
		centroids = append(centroids, c)
		for i := range xs {
			if d := sqDist(xs[i], norms[i], c, cn); d < closest[i] {
				closest[i] = d
			}
		}
	}
	return centroids
}

func lloyd(xs []SparseVec, norms []float64, centroids [][]float64, dim int) Clustering {
	k := len(centroids)
	labels := make([]int, len(xs))
	for i := range labels {
		labels[i] = -1
	}
	cnorms := make([]float64, k)

	var inertia float64
	for iter := 0; iter < maxIterations; iter++ {
		for j, c := range centroids {
			cnorms[j] = denseSqNorm(c)
		}

		changed := false
		inertia = 0
		for i, x := range xs {
			bestJ, bestD := 0, math.Inf(1)
			for j, c := range centroids {
				if d := sqDist(x, norms[i], c, cnorms[j]); d < bestD {
					bestJ, bestD = j, d
				}
			}
			if labels[i] != bestJ {
				labels[i] = bestJ
				changed = true
			}
			inertia += bestD
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for i, x := range xs {
			j := labels[i]
			if sums[j] == nil {
				sums[j] = make([]float64, dim)
			}
			for n, idx := range x.Idx {
				sums[j][idx] += x.Val[n]
			}
			counts[j]++
		}
		for j := range centroids {
			// An emptied cluster keeps its previous centroid.
			if counts[j] == 0 {
				continue
			}
			for d := range sums[j] {
				sums[j][d] /= float64(counts[j])
			}
			centroids[j] = sums[j]
		}
	}

	return Clustering{Labels: labels, Centroids: centroids, Inertia: inertia}
}

func densify(x SparseVec, dim int) []float64 {
	d := make([]float64, dim)
	for n, idx := range x.Idx {
		d[idx] = x.Val[n]
	}
	return d
}

func sqNorm(x SparseVec) float64 {
	var s float64
	for _, v := range x.Val {
		s += v * v
	}
	return s
}

func denseSqNorm(c []float64) float64 {
	var s float64
	for _, v := range c {
		s += v * v
	}
	return s
}

// sqDist is ||x - c||^2 expanded so only x's non-zeros are visited.
func sqDist(x SparseVec, xNorm float64, c []float64, cNorm float64) float64 {
	var dot float64
	for n, idx := range x.Idx {
		dot += x.Val[n] * c[idx]
	}
	return math.Max(0, xNorm+cNorm-2*dot)
}
