package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"
)

var riskFill = map[domain.RiskLevel]string{
	domain.RiskHigh:   "#f8d7da",
	domain.RiskMedium: "#fff3cd",
	domain.RiskLow:    "#eef6ff",
	domain.RiskNone:   "#f5f5f5",
}

// ToDOT renders the impact subgraph of rootID: the root, every artefact in
// its closure and the relationships between them. Downstream nodes are
// filled by risk level, upstream nodes are dashed.
func ToDOT(snap *domain.Snapshot, summary domain.ImpactSummary, title string) string {
	byID := snap.ArtefactsByID()

	dir := map[string]domain.Direction{}
	for _, n := range summary.Upstream {
		dir[n.ArtefactID] = domain.Upstream
	}
	// downstream wins for nodes reached both ways
	for _, n := range summary.Downstream {
		dir[n.ArtefactID] = domain.Downstream
	}

	var b strings.Builder
	b.WriteString("digraph Impact {\n  rankdir=LR;\n  node [shape=box, style=rounded, fontname=\"Helvetica\"];\n")
	if title != "" {
		fmt.Fprintf(&b, "  labelloc=\"t\"; label=%s;\n", quote(title))
	}

	if _, ok := byID[summary.RootID]; !ok && len(dir) == 0 {
		b.WriteString("}\n")
		return b.String()
	}

	fmt.Fprintf(&b, "  %s [label=%s, shape=doubleoctagon, style=\"filled,bold\", fillcolor=\"#cfe2ff\"];\n",
		quote(summary.RootID), quote(label(summary.RootID, byID)))

	ids := make([]string, 0, len(dir))
	for id := range dir {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		a, known := byID[id]
		style := `style="rounded,filled"`
		fill := riskFill[domain.RiskNone]
		if known {
			if f, ok := riskFill[a.RiskLevel]; ok {
				fill = f
			}
		}
		if dir[id] == domain.Upstream {
			style = `style="rounded,dashed,filled"`
		}
		fmt.Fprintf(&b, "  %s [label=%s, %s, fillcolor=%q];\n", quote(id), quote(label(id, byID)), style, fill)
	}

	inGraph := func(id string) bool {
		_, ok := dir[id]
		return ok || id == summary.RootID
	}
	for _, e := range snap.Relationships {
		if !inGraph(e.Source) || !inGraph(e.Target) {
			continue
		}
		lbl := string(e.Type)
		if e.Label != "" {
			lbl = fmt.Sprintf("%s: %s", lbl, e.Label)
		}
		fmt.Fprintf(&b, "  %s -> %s [label=%s];\n", quote(e.Source), quote(e.Target), quote(lbl))
	}

	b.WriteString("}\n")
	return b.String()
}

func label(id string, byID map[string]domain.Artefact) string {
	a, ok := byID[id]
	if !ok || a.Name == "" {
		return id
	}
	if a.RiskLevel == "" {
		return a.Name
	}
	return fmt.Sprintf("%s\n(%s)", a.Name, a.RiskLevel)
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
