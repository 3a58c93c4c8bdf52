package geometry

import (
	"sort"

	"github.com/piwi3910/SlabNest/internal/model"
)

// Triangulate splits a simple polygon into counter-clockwise triangles by
// ear clipping.
func Triangulate(poly model.Outline) []model.Outline {
	o := Simplify(poly.CCW())
	tris := triangulateIndices(o)
	out := make([]model.Outline, len(tris))
	for i, t := range tris {
		out[i] = model.Outline{o[t[0]], o[t[1]], o[t[2]]}
	}
	return out
}

func triangulateIndices(o model.Outline) [][]int {
	n := len(o)
	if n < 3 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	var tris [][]int
	for len(idx) > 3 {
		m := len(idx)
		ear := -1
		for i := 0; i < m; i++ {
			if isEar(o, idx, i) {
				ear = i
				break
			}
		}
		if ear < 0 {
			// Numerically stuck: clip the most convex corner.
			best := -1.0
			for i := 0; i < m; i++ {
				c := cross(o[idx[(i+m-1)%m]], o[idx[i]], o[idx[(i+1)%m]])
				if ear < 0 || c > best {
					ear, best = i, c
				}
			}
		}
		tris = append(tris, []int{idx[(ear+m-1)%m], idx[ear], idx[(ear+1)%m]})
		idx = append(idx[:ear], idx[ear+1:]...)
	}
	if cross(o[idx[0]], o[idx[1]], o[idx[2]]) > 0 {
		tris = append(tris, []int{idx[0], idx[1], idx[2]})
	}
	return tris
}

func isEar(o model.Outline, idx []int, i int) bool {
	m := len(idx)
	a, b, c := o[idx[(i+m-1)%m]], o[idx[i]], o[idx[(i+1)%m]]
	if cross(a, b, c) <= Epsilon {
		return false
	}
	for j := 0; j < m; j++ {
		if j == i || j == (i+m-1)%m || j == (i+1)%m {
			continue
		}
		p := o[idx[j]]
		if p == a || p == b || p == c {
			continue
		}
		if inTriangle(p, a, b, c) {
			return false
		}
	}
	return true
}

// inTriangle reports whether p lies inside or on the CCW triangle abc.
func inTriangle(p, a, b, c model.Point2D) bool {
	return cross(a, b, p) >= -Epsilon && cross(b, c, p) >= -Epsilon && cross(c, a, p) >= -Epsilon
}

// ConvexDecompose splits a simple polygon into convex counter-clockwise
// pieces. Convex input is returned as one piece; otherwise the ear-clipped
// triangulation is merged with the Hertel-Mehlhorn rule, removing every
// diagonal whose removal keeps both endpoints convex.
func ConvexDecompose(poly model.Outline) []model.Outline {
	o := Simplify(poly.CCW())
	if len(o) < 3 {
		return nil
	}
	if IsConvex(o) {
		return []model.Outline{o}
	}

	pieces := triangulateIndices(o)
	owners := make(map[[2]int][]int)
	for pi, piece := range pieces {
		for _, e := range pieceEdges(piece) {
			owners[e] = append(owners[e], pi)
		}
	}

	var diagonals [][2]int
	for e, ps := range owners {
		if len(ps) == 2 {
			diagonals = append(diagonals, e)
		}
	}
	sort.Slice(diagonals, func(i, j int) bool {
		if diagonals[i][0] != diagonals[j][0] {
			return diagonals[i][0] < diagonals[j][0]
		}
		return diagonals[i][1] < diagonals[j][1]
	})

	for _, d := range diagonals {
		ps := owners[d]
		if len(ps) != 2 || ps[0] == ps[1] {
			continue
		}
		p, q := ps[0], ps[1]
		merged := mergePieces(pieces[p], pieces[q], d[0], d[1])
		if merged == nil || !IsConvex(indexOutline(o, merged)) {
			continue
		}
		for _, e := range pieceEdges(pieces[q]) {
			for k, owner := range owners[e] {
				if owner == q {
					owners[e][k] = p
				}
			}
		}
		delete(owners, d)
		pieces[p] = merged
		pieces[q] = nil
	}

	var out []model.Outline
	for _, piece := range pieces {
		if piece != nil {
			out = append(out, indexOutline(o, piece))
		}
	}
	return out
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

func pieceEdges(piece []int) [][2]int {
	edges := make([][2]int, len(piece))
	for i := range piece {
		edges[i] = edgeKey(piece[i], piece[(i+1)%len(piece)])
	}
	return edges
}

func indexOutline(o model.Outline, piece []int) model.Outline {
	out := make(model.Outline, len(piece))
	for i, k := range piece {
		out[i] = o[k]
	}
	return out
}

// mergePieces joins two CCW index loops across their shared edge a-b.
func mergePieces(p, q []int, a, b int) []int {
	pos := func(s []int, v int) int {
		for i, x := range s {
			if x == v {
				return i
			}
		}
		return -1
	}
	ia := pos(p, a)
	if ia < 0 || pos(p, b) < 0 {
		return nil
	}
	u, v := b, a
	if p[(ia+1)%len(p)] == b {
		u, v = a, b
	}
	// p runs u->v across the diagonal, q runs v->u.
	iv, iu := pos(p, v), pos(q, u)
	if iu < 0 {
		return nil
	}
	merged := make([]int, 0, len(p)+len(q)-2)
	for k := 0; k < len(p); k++ {
		merged = append(merged, p[(iv+k)%len(p)])
	}
	for k := 1; k < len(q)-1; k++ {
		merged = append(merged, q[(iu+k)%len(q)])
	}
	return merged
}
