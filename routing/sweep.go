package routing

import (
	"math"
	"sort"

	"github.com/katalvlaran/lvroute/engine"
)

// Point is a node position used by the sweep first solution strategy.
type Point struct {
	X, Y int64
}

// SweepArranger orders nodes by the angle they make with the first
// point, which acts as the sweep center. With more than one sector the
// nodes are first banded by distance from the center and each band is
// swept separately, nearest band first.
type SweepArranger struct {
	points  []Point
	sectors int
}

// NewSweepArranger takes one point per node, in node order. The first
// point is the sweep center.
func NewSweepArranger(points []Point) *SweepArranger {
	copied := make([]Point, len(points))
	copy(copied, points)
	return &SweepArranger{points: copied, sectors: 1}
}

// SetSectors sets the number of distance bands; values below one keep
// a single band.
func (a *SweepArranger) SetSectors(sectors int) {
	if sectors < 1 {
		sectors = 1
	}
	a.sectors = sectors
}

type sweepNode struct {
	node     Node
	angle    float64
	distance float64
}

// ArrangeNodes returns every node, banded by squared distance from the
// center and sorted by ascending angle within each band.
func (a *SweepArranger) ArrangeNodes() []Node {
	if len(a.points) == 0 {
		return nil
	}
	center := a.points[0]
	nodes := make([]sweepNode, len(a.points))
	for i, p := range a.points {
		dx := float64(p.X - center.X)
		dy := float64(p.Y - center.Y)
		distance := dx*dx + dy*dy
		angle := 0.0
		if distance != 0 {
			angle = math.Atan2(dy, dx)
			if angle < 0 {
				angle += 2 * math.Pi
			}
		}
		nodes[i] = sweepNode{node: Node(i), angle: angle, distance: distance}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].distance < nodes[j].distance })

	bandSize := len(nodes) / a.sectors
	for sector := 0; sector < a.sectors; sector++ {
		begin := sector * bandSize
		end := begin + bandSize
		if sector == a.sectors-1 {
			end = len(nodes)
		}
		band := nodes[begin:end]
		sort.Slice(band, func(i, j int) bool { return band[i].angle < band[j].angle })
	}

	arranged := make([]Node, len(nodes))
	for i, n := range nodes {
		arranged[i] = n.node
	}
	return arranged
}

// sweepBuilder builds a first solution by chaining the nodes in sweep
// order. Suitable when the cost is a planar distance.
func (m *Model) sweepBuilder(check bool) engine.DecisionBuilder {
	return newAssignBuilder(func() (*engine.Assignment, bool) {
		target := engine.NewAssignment()
		newRouteConstructor(m, target, check, m.sweepLinks()).construct()
		return target, true
	})
}

// sweepLinks links consecutive orders of the sweep arrangement against
// the first vehicle class.
func (m *Model) sweepLinks() []routeLink {
	if m.opts.SweepSectors > 0 && m.opts.SweepSectors < m.nodes {
		m.sweep.SetSectors(m.opts.SweepSectors)
	}
	arranged := m.sweep.ArrangeNodes()
	depot := m.Depot()
	var links []routeLink
	for i := 0; i+1 < len(arranged); i++ {
		from := m.NodeToIndex(arranged[i])
		to := m.NodeToIndex(arranged[i+1])
		if from == Unassigned || to == Unassigned || m.IsStart(from) || m.IsStart(to) {
			continue
		}
		links = append(links, routeLink{from: from, to: to, startDepot: depot, endDepot: depot})
	}
	return links
}
