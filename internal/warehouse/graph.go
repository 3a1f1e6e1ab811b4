package warehouse

import (
	"sort"

	"github.com/warehouse-visualizer/backend/internal/models"
)

// Graph is the undirected navigation graph of a warehouse.
type Graph struct {
	// Nodes keeps the input order of the node records.
	Nodes []models.Coord
	// Adjacency maps a node to its neighbours. Repeated links are kept.
	Adjacency map[models.Coord][]models.Coord
}

// NewGraph builds a Graph from a node-link description. Every link is added
// in both directions. Link endpoints are not checked against Nodes; see
// Dangling.
func NewGraph(data models.NodeLinkData) *Graph {
	g := &Graph{
		Nodes:     make([]models.Coord, 0, len(data.Nodes)),
		Adjacency: make(map[models.Coord][]models.Coord, len(data.Nodes)),
	}
	for _, node := range data.Nodes {
		g.Nodes = append(g.Nodes, node.ID)
	}
	for _, link := range data.Links {
		g.Adjacency[link.Source] = append(g.Adjacency[link.Source], link.Target)
		g.Adjacency[link.Target] = append(g.Adjacency[link.Target], link.Source)
	}
	return g
}

// Neighbors returns the neighbours of c, or nil if c has no links.
func (g *Graph) Neighbors(c models.Coord) []models.Coord {
	return g.Adjacency[c]
}

// HasNode reports whether c was declared as a node.
func (g *Graph) HasNode(c models.Coord) bool {
	for _, n := range g.Nodes {
		if n == c {
			return true
		}
	}
	return false
}

// Dangling returns link endpoints that were never declared as nodes,
// ordered by column then row. Such endpoints have adjacency entries but no
// navigable grid cell.
func (g *Graph) Dangling() []models.Coord {
	declared := make(map[models.Coord]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		declared[n] = struct{}{}
	}
	var out []models.Coord
	for n := range g.Adjacency {
		if _, ok := declared[n]; !ok {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Col() != out[j].Col() {
			return out[i].Col() < out[j].Col()
		}
		return out[i].Row() < out[j].Row()
	})
	return out
}
