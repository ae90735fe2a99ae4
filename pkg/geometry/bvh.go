package geometry

import (
	"github.com/df07/go-light-transport/pkg/core"
)

// Leaf threshold: if we have this many or fewer items, store them in a leaf node
const leafThreshold = 8

// maxStackDepth bounds the traversal stack. Median splits on real scenes stay
// far below it; deeper trees fall back to linear leaves during the build.
const maxStackDepth = 64

// bvhNode is a node of the flattened hierarchy. Internal nodes keep their
// first child at the next index and the second child at secondChild.
type bvhNode struct {
	bounds      core.AABB
	start       int // First entry in BVH.order (leaves)
	count       int // Number of items (leaves), 0 for internal nodes
	secondChild int
	axis        int
}

// BVH is a bounding volume hierarchy over items identified by index. The
// tree is flattened into a slice and traversed with an explicit stack, so
// queries never allocate.
type BVH struct {
	nodes []bvhNode
	order []int
}

// NewBVH builds a BVH over the given bounds using median splits along the
// longest axis of each node
func NewBVH(bounds []core.AABB) *BVH {
	b := &BVH{order: make([]int, len(bounds))}
	for i := range b.order {
		b.order[i] = i
	}
	if len(bounds) > 0 {
		b.build(bounds, 0, len(bounds), 0)
	}
	return b
}

func (b *BVH) build(bounds []core.AABB, start, end, depth int) int {
	box := core.EmptyAABB()
	for _, idx := range b.order[start:end] {
		box = box.Union(bounds[idx])
	}

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, bvhNode{bounds: box, start: start, count: end - start})

	if end-start <= leafThreshold || depth >= maxStackDepth-2 {
		return nodeIndex
	}

	axis, splitPos, ok := findMedianSplit(bounds, b.order[start:end])
	if !ok {
		return nodeIndex
	}

	mid := partitionItems(bounds, b.order[start:end], axis, splitPos) + start
	if mid == start || mid == end {
		return nodeIndex
	}

	b.nodes[nodeIndex].count = 0
	b.nodes[nodeIndex].axis = axis
	b.build(bounds, start, mid, depth+1)
	second := b.build(bounds, mid, end, depth+1)
	b.nodes[nodeIndex].secondChild = second
	return nodeIndex
}

// findMedianSplit picks the longest axis of the centroid bounds and splits it in half
func findMedianSplit(bounds []core.AABB, items []int) (int, float64, bool) {
	centroids := core.EmptyAABB()
	for _, idx := range items {
		centroids = centroids.Grow(bounds[idx].Center())
	}
	axis := centroids.LongestAxis()
	lo, hi := centroids.Min.Get(axis), centroids.Max.Get(axis)
	if hi <= lo {
		return -1, 0, false
	}
	return axis, (lo + hi) * 0.5, true
}

// partitionItems reorders items in place so that those with centroids below
// splitPos come first and returns how many there are
func partitionItems(bounds []core.AABB, items []int, axis int, splitPos float64) int {
	i := 0
	for j := range items {
		if bounds[items[j]].Center().Get(axis) < splitPos {
			items[i], items[j] = items[j], items[i]
			i++
		}
	}
	return i
}

// Bounds returns the bounds of everything in the hierarchy
func (b *BVH) Bounds() core.AABB {
	if len(b.nodes) == 0 {
		return core.EmptyAABB()
	}
	return b.nodes[0].bounds
}

// Intersect visits every item whose node bounds overlap the current ray
// interval. visit returns true when it found a hit, and is expected to have
// narrowed ray.FarT. Near children are visited first so later boxes are
// culled against the narrowed interval.
func (b *BVH) Intersect(ray *core.Ray, visit func(item int) bool) bool {
	if len(b.nodes) == 0 {
		return false
	}

	var stack [maxStackDepth]int
	top := 0
	stack[top] = 0
	top++

	hit := false
	for top > 0 {
		top--
		node := &b.nodes[stack[top]]
		if !node.bounds.Hit(*ray, ray.NearT, ray.FarT) {
			continue
		}

		if node.count > 0 {
			for _, item := range b.order[node.start : node.start+node.count] {
				if visit(item) {
					hit = true
				}
			}
			continue
		}

		first := stack[top] + 1
		second := node.secondChild
		if ray.Direction.Get(node.axis) < 0 {
			first, second = second, first
		}
		stack[top] = second
		stack[top+1] = first
		top += 2
	}
	return hit
}

// Occluded returns true as soon as test reports a blocking item
func (b *BVH) Occluded(ray core.Ray, test func(item int) bool) bool {
	if len(b.nodes) == 0 {
		return false
	}

	var stack [maxStackDepth]int
	top := 0
	stack[top] = 0
	top++

	for top > 0 {
		top--
		node := &b.nodes[stack[top]]
		if !node.bounds.Hit(ray, ray.NearT, ray.FarT) {
			continue
		}

		if node.count > 0 {
			for _, item := range b.order[node.start : node.start+node.count] {
				if test(item) {
					return true
				}
			}
			continue
		}

		index := stack[top]
		stack[top] = node.secondChild
		stack[top+1] = index + 1
		top += 2
	}
	return false
}

// bvhStats contains statistics about the BVH structure
type bvhStats struct {
	totalNodes int
	leafNodes  int
	maxDepth   int
	totalItems int
}

// stats collects statistics about the BVH
func (b *BVH) stats() bvhStats {
	var s bvhStats
	if len(b.nodes) > 0 {
		b.collectStats(0, 0, &s)
	}
	return s
}

func (b *BVH) collectStats(index, depth int, s *bvhStats) {
	s.totalNodes++
	s.maxDepth = max(s.maxDepth, depth)

	node := &b.nodes[index]
	if node.count > 0 {
		s.leafNodes++
		s.totalItems += node.count
		return
	}
	b.collectStats(index+1, depth+1, s)
	b.collectStats(node.secondChild, depth+1, s)
}
