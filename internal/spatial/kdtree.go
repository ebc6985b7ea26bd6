// Package spatial provides a static k-d tree over the reference geometry's
// 2D points. The tree is built once per run; geometry is frozen for the run
// so rebuilds are never needed, and queries are safe for concurrent use.
package spatial

import (
	"iter"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/urbanopt/internal/geometry"
)

// Index answers radius and k-nearest queries in sub-linear time. All results
// are deterministic: equal distances tie-break by original insertion index.
type Index struct {
	points []geometry.Point
	root   *node
}

type node struct {
	idx   int // index into points
	axis  int // 0 = X, 1 = Y
	left  *node
	right *node
}

// Build constructs the index over the given points in O(N log N). It returns
// geometry.ErrInvalidGeometry if any point has non-finite coordinates.
func Build(points []geometry.Point) (*Index, error) {
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return nil, eris.Wrapf(geometry.ErrInvalidGeometry, "spatial: point %d has non-finite coordinates", i)
		}
	}

	idxs := make([]int, len(points))
	for i := range idxs {
		idxs[i] = i
	}

	ix := &Index{points: points}
	ix.root = ix.build(idxs, 0)
	return ix, nil
}

// Len returns the number of indexed points.
func (ix *Index) Len() int {
	return len(ix.points)
}

func (ix *Index) build(idxs []int, depth int) *node {
	if len(idxs) == 0 {
		return nil
	}
	axis := depth % 2

	// Sort by the split axis, stable by insertion index so the tree shape
	// (and therefore traversal order) is deterministic.
	sort.Slice(idxs, func(a, b int) bool {
		ca, cb := ix.coord(idxs[a], axis), ix.coord(idxs[b], axis)
		if ca != cb {
			return ca < cb
		}
		return idxs[a] < idxs[b]
	})

	mid := len(idxs) / 2
	return &node{
		idx:   idxs[mid],
		axis:  axis,
		left:  ix.build(idxs[:mid], depth+1),
		right: ix.build(idxs[mid+1:], depth+1),
	}
}

func (ix *Index) coord(i, axis int) float64 {
	if axis == 0 {
		return ix.points[i].X
	}
	return ix.points[i].Y
}

// QueryRadius returns the indices of all points with Euclidean distance ≤ r
// from q, in ascending insertion order.
func (ix *Index) QueryRadius(q geometry.Point, r float64) []int {
	if r < 0 {
		return nil
	}
	var out []int
	ix.radius(ix.root, q, r, &out)
	sort.Ints(out)
	return out
}

// RadiusSeq is the lazy form of QueryRadius: a finite, restartable sequence
// of matching indices in ascending insertion order. Each range over the
// sequence re-runs the query.
func (ix *Index) RadiusSeq(q geometry.Point, r float64) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, i := range ix.QueryRadius(q, r) {
			if !yield(i) {
				return
			}
		}
	}
}

func (ix *Index) radius(n *node, q geometry.Point, r float64, out *[]int) {
	if n == nil {
		return
	}
	p := ix.points[n.idx]
	if p.Distance(q) <= r {
		*out = append(*out, n.idx)
	}

	split := ix.coord(n.idx, n.axis)
	qc := q.X
	if n.axis == 1 {
		qc = q.Y
	}

	if qc-r <= split {
		ix.radius(n.left, q, r, out)
	}
	if qc+r >= split {
		ix.radius(n.right, q, r, out)
	}
}

// Neighbor is one k-nearest result.
type Neighbor struct {
	Index    int
	Distance float64
}

// QueryKNearest returns up to k points ordered by ascending distance, with
// ties broken by insertion index. Fewer than k are returned if the index
// holds fewer points.
func (ix *Index) QueryKNearest(q geometry.Point, k int) []Neighbor {
	if k <= 0 || len(ix.points) == 0 {
		return nil
	}
	if k > len(ix.points) {
		k = len(ix.points)
	}

	best := make([]Neighbor, 0, k)
	ix.nearest(ix.root, q, k, &best)
	return best
}

func (ix *Index) nearest(n *node, q geometry.Point, k int, best *[]Neighbor) {
	if n == nil {
		return
	}

	insertNeighbor(best, Neighbor{Index: n.idx, Distance: ix.points[n.idx].Distance(q)}, k)

	split := ix.coord(n.idx, n.axis)
	qc := q.X
	if n.axis == 1 {
		qc = q.Y
	}

	near, far := n.left, n.right
	if qc > split {
		near, far = far, near
	}

	ix.nearest(near, q, k, best)

	// Visit the far side only if the splitting plane could still hold a
	// closer point than the current k-th best.
	if len(*best) < k || math.Abs(qc-split) <= (*best)[len(*best)-1].Distance {
		ix.nearest(far, q, k, best)
	}
}

// insertNeighbor keeps best sorted by (distance, index) and capped at k.
func insertNeighbor(best *[]Neighbor, nb Neighbor, k int) {
	b := *best
	pos := sort.Search(len(b), func(i int) bool {
		if b[i].Distance != nb.Distance {
			return b[i].Distance > nb.Distance
		}
		return b[i].Index > nb.Index
	})
	if pos >= k {
		return
	}
	b = append(b, Neighbor{})
	copy(b[pos+1:], b[pos:])
	b[pos] = nb
	if len(b) > k {
		b = b[:k]
	}
	*best = b
}
