package features

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/desertthunder/cratedig/internal/shared"
	"github.com/muesli/clusters"
)

// KMeans configures a seeded k-means fit.
type KMeans struct {
	K       int
	Seed    uint64
	NInit   int     // independent k-means++ starts; the lowest inertia wins
	MaxIter int     // Lloyd iterations per start
	Tol     float64 // stop when total squared center shift falls to this
}

// DefaultKMeans returns k=8, seed=7 with ten starts of up to 300 iterations.
func DefaultKMeans() KMeans {
	return KMeans{K: 8, Seed: 7, NInit: 10, MaxIter: 300, Tol: 1e-4}
}

// Fit partitions points into K clusters and returns the centers and inertia
// (sum of squared distances to the nearest center).
func (km KMeans) Fit(points []clusters.Coordinates) (clusters.Clusters, float64, error) {
	if len(points) == 0 {
		return nil, 0, shared.ErrEmptyTable
	}
	if km.K <= 0 {
		return nil, 0, fmt.Errorf("%w: k must be positive, got %d", shared.ErrInvalidArgument, km.K)
	}
	if km.K > len(points) {
		return nil, 0, fmt.Errorf("%w: %d rows cannot form %d clusters", shared.ErrInvalidInput, len(points), km.K)
	}

	defaults := DefaultKMeans()
	if km.NInit <= 0 {
		km.NInit = defaults.NInit
	}
	if km.MaxIter <= 0 {
		km.MaxIter = defaults.MaxIter
	}

	observations := make(clusters.Observations, len(points))
	for i, p := range points {
		observations[i] = p
	}

	rng := rand.New(rand.NewPCG(km.Seed, km.Seed))

	var best clusters.Clusters
	bestInertia := math.Inf(1)
	for range km.NInit {
		cs := seedCenters(rng, points, km.K)
		inertia := lloyd(cs, observations, km.MaxIter, km.Tol)
		if inertia < bestInertia {
			best, bestInertia = cs, inertia
		}
	}

	if best == nil {
		return nil, 0, fmt.Errorf("%w: matrix contains non-finite values", shared.ErrInvalidInput)
	}
	best.Reset()
	return best, bestInertia, nil
}

// seedCenters picks k initial centers with k-means++: each next center is drawn
// with probability proportional to its squared distance from the nearest chosen one.
func seedCenters(rng *rand.Rand, points []clusters.Coordinates, k int) clusters.Clusters {
	n := len(points)
	cs := make(clusters.Clusters, 0, k)
	cs = append(cs, clusters.Cluster{Center: clone(points[rng.IntN(n)])})

	weights := make([]float64, n)
	for len(cs) < k {
		var total float64
		for i, p := range points {
			weights[i] = p.Distance(cs[cs.Nearest(p)].Center)
			total += weights[i]
		}

		next := n - 1
		if total == 0 {
			next = rng.IntN(n)
		} else {
			target := rng.Float64() * total
			for i, w := range weights {
				target -= w
				if target < 0 {
					next = i
					break
				}
			}
		}
		cs = append(cs, clusters.Cluster{Center: clone(points[next])})
	}
	return cs
}

// lloyd alternates assignment and recentering until centers settle, then returns the inertia.
// A cluster left empty keeps its previous center.
func lloyd(cs clusters.Clusters, observations clusters.Observations, maxIter int, tol float64) float64 {
	assign := func() float64 {
		cs.Reset()
		var inertia float64
		for _, o := range observations {
			i := cs.Nearest(o)
			cs[i].Append(o)
			inertia += o.Distance(cs[i].Center)
		}
		return inertia
	}

	for range maxIter {
		assign()
		var shift float64
		for i := range cs {
			prev := cs[i].Center
			cs[i].Recenter()
			shift += prev.Distance(cs[i].Center)
		}
		if shift <= tol {
			break
		}
	}
	return assign()
}

func clone(c clusters.Coordinates) clusters.Coordinates {
	return append(clusters.Coordinates(nil), c...)
}
