package validator

import "github.com/aretw0/gantry/pkg/domain"

// graph is the Kahn's-algorithm kernel shared by every cycle check.
// Only edges between known slot ids are counted.
type graph struct {
	ids        []string // unique ids, declaration order
	known      map[string]bool
	dependents map[string][]string
	inDegree   map[string]int
}

func newGraph(slots []domain.Slot) *graph {
	g := &graph{
		known:      make(map[string]bool, len(slots)),
		dependents: make(map[string][]string),
		inDegree:   make(map[string]int, len(slots)),
	}
	for _, s := range slots {
		if !g.known[s.ID] {
			g.known[s.ID] = true
			g.ids = append(g.ids, s.ID)
			g.inDegree[s.ID] = 0
		}
	}
	for _, s := range slots {
		for _, dep := range s.DependsOn {
			g.addEdge(dep, s.ID)
		}
	}
	return g
}

// addEdge records that to cannot start before from.
func (g *graph) addEdge(from, to string) {
	if !g.known[from] || !g.known[to] {
		return
	}
	g.dependents[from] = append(g.dependents[from], to)
	g.inDegree[to]++
}

// sort returns the FIFO topological order and, when the graph is cyclic,
// every id whose in-degree never reached zero.
func (g *graph) sort() (order []string, stuck []string) {
	inDegree := make(map[string]int, len(g.inDegree))
	queue := make([]string, 0, len(g.ids))
	for _, id := range g.ids {
		inDegree[id] = g.inDegree[id]
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order = make([]string, 0, len(g.ids))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range g.dependents[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) == len(g.ids) {
		return order, nil
	}
	for _, id := range g.ids {
		if inDegree[id] > 0 {
			stuck = append(stuck, id)
		}
	}
	return order, stuck
}
