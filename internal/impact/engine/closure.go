package engine

import "github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"

// adjacency mirrors the Out/In maps the detection graph keeps, built per call.
type adjacency struct {
	out map[string][]string
	in  map[string][]string
}

func index(edges []domain.Relationship) adjacency {
	adj := adjacency{
		out: make(map[string][]string, len(edges)),
		in:  make(map[string][]string, len(edges)),
	}
	for _, e := range edges {
		adj.out[e.Source] = append(adj.out[e.Source], e.Target)
		adj.in[e.Target] = append(adj.in[e.Target], e.Source)
	}
	return adj
}

// ComputeClosure walks the relationship list breadth-first from rootID in both
// directions. Downstream follows edges whose source is the current node,
// upstream follows edges whose target is the current node.
//
// A root that is not in artefactsByID yields an empty closure. Endpoints that
// do not resolve to an artefact are still traversed as opaque nodes.
func ComputeClosure(rootID string, edges []domain.Relationship, artefactsByID map[string]domain.Artefact) domain.Closure {
	out := domain.Closure{
		Upstream:   []domain.ImpactNode{},
		Downstream: []domain.ImpactNode{},
	}
	if _, ok := artefactsByID[rootID]; !ok {
		return out
	}

	adj := index(edges)
	out.Downstream = walk(rootID, adj.out, domain.Downstream)
	out.Upstream = walk(rootID, adj.in, domain.Upstream)
	return out
}

type queued struct {
	id    string
	depth int
}

func walk(rootID string, next map[string][]string, dir domain.Direction) []domain.ImpactNode {
	nodes := []domain.ImpactNode{}
	visited := map[string]bool{rootID: true}
	queue := []queued{{id: rootID}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, n := range next[cur.id] {
			if visited[n] {
				continue
			}
			visited[n] = true
			d := cur.depth + 1
			nodes = append(nodes, domain.ImpactNode{
				ArtefactID: n,
				Direction:  dir,
				Depth:      d,
				ImpactType: domain.ImpactTypeForDepth(d),
			})
			queue = append(queue, queued{id: n, depth: d})
		}
	}
	return nodes
}
