package track

import (
	"container/heap"
	"image"

	"github.com/Faultbox/tdr2024/pkg/tiled"
)

const diagonalCost = 1.414

// routeNode is a tile visited by the A* search.
type routeNode struct {
	pos    image.Point
	g, f   float32
	parent *routeNode
	index  int
}

// routeHeap orders open nodes by estimated total cost.
type routeHeap []*routeNode

func (h routeHeap) Len() int           { return len(h) }
func (h routeHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h routeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *routeHeap) Push(x any) {
	n := x.(*routeNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *routeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	old[len(old)-1] = nil
	n.index = -1
	*h = old[:len(old)-1]
	return n
}

// 8-way neighbourhood, straight moves on even indices.
var directions = [8]image.Point{
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
}

// Router finds paths that stay on the track layer of a map.
// Coordinates are tile columns and rows, rows counting down from the top.
type Router struct {
	layer         *tiled.TileLayer
	width, height int
}

// NewRouter creates a router over m's track layer.
func NewRouter(m *tiled.Map) (*Router, error) {
	layer, err := TrackLayer(m)
	if err != nil {
		return nil, err
	}
	return &Router{layer: layer, width: layer.Width, height: layer.Height}, nil
}

// OnTrack reports whether the tile at p is a track tile.
func (r *Router) OnTrack(p image.Point) bool {
	if !r.inBounds(p) {
		return false
	}
	_, ok := r.layer.Tile(p.X, p.Y)
	return ok
}

// FindPath returns the shortest on-track path from start to goal, both ends
// included. Diagonal steps may not cut across off-track corners.
// Returns nil if either end is off the track or no path exists.
func (r *Router) FindPath(start, goal image.Point) []image.Point {
	if !r.OnTrack(start) || !r.OnTrack(goal) {
		return nil
	}

	open := &routeHeap{}
	closed := make(map[int]bool)
	nodes := make(map[int]*routeNode)

	first := &routeNode{pos: start, f: heuristic(start, goal)}
	heap.Push(open, first)
	nodes[r.key(start)] = first

	for open.Len() > 0 {
		current := heap.Pop(open).(*routeNode)
		if current.pos == goal {
			return reconstruct(current)
		}
		closed[r.key(current.pos)] = true

		for i, dir := range directions {
			next := current.pos.Add(dir)
			if !r.OnTrack(next) || closed[r.key(next)] {
				continue
			}

			cost := float32(1)
			if i%2 == 1 {
				cost = diagonalCost
				if !r.OnTrack(image.Pt(next.X, current.pos.Y)) || !r.OnTrack(image.Pt(current.pos.X, next.Y)) {
					continue
				}
			}

			g := current.g + cost
			n, seen := nodes[r.key(next)]
			switch {
			case !seen:
				n = &routeNode{pos: next, g: g, f: g + heuristic(next, goal), parent: current}
				nodes[r.key(next)] = n
				heap.Push(open, n)
			case g < n.g:
				n.f += g - n.g
				n.g = g
				n.parent = current
				heap.Fix(open, n.index)
			}
		}
	}
	return nil
}

// Reachable returns the number of track tiles connected to start.
func (r *Router) Reachable(start image.Point) int {
	if !r.OnTrack(start) {
		return 0
	}
	seen := map[int]bool{r.key(start): true}
	queue := []image.Point{start}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for i := 0; i < len(directions); i += 2 {
			next := p.Add(directions[i])
			if k := r.key(next); r.OnTrack(next) && !seen[k] {
				seen[k] = true
				queue = append(queue, next)
			}
		}
	}
	return len(seen)
}

func (r *Router) inBounds(p image.Point) bool {
	return p.X >= 0 && p.X < r.width && p.Y >= 0 && p.Y < r.height
}

func (r *Router) key(p image.Point) int {
	return p.Y*r.width + p.X
}

// heuristic is the octile distance between a and b.
func heuristic(a, b image.Point) float32 {
	dx, dy := abs(b.X-a.X), abs(b.Y-a.Y)
	if dx < dy {
		return float32(dx)*diagonalCost + float32(dy-dx)
	}
	return float32(dy)*diagonalCost + float32(dx-dy)
}

func reconstruct(n *routeNode) []image.Point {
	var path []image.Point
	for ; n != nil; n = n.parent {
		path = append(path, n.pos)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
