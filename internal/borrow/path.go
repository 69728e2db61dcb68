package borrow

import "github.com/libshelf/borrowd/internal/opds"

// PathElement is one content-type hop in an acquisition path. Only the
// first element of a path carries a target URI at selection time; later
// hops discover theirs at runtime.
type PathElement struct {
	Type   string `json:"type"`
	Target string `json:"target,omitempty"`
}

// Path is an executable acquisition path: the acquisition it came from plus
// an ordered, non-empty chain of elements.
type Path struct {
	Source   opds.Acquisition `json:"source"`
	Elements []PathElement    `json:"elements"`
}

// Final returns the path's last element, the content type the path yields.
func (p Path) Final() PathElement {
	return p.Elements[len(p.Elements)-1]
}

// ContainsType reports whether any hop carries the given MIME type.
func (p Path) ContainsType(mime string) bool {
	for _, e := range p.Elements {
		if opds.TypesCompatible(e.Type, mime) {
			return true
		}
	}
	return false
}

// PathsOf enumerates every acquisition path a catalog entry offers. Each
// acquisition contributes one path per leaf of its indirect-acquisition
// tree; an acquisition with no indirect chain is a single-hop path.
func PathsOf(entry *opds.Entry) []Path {
	var paths []Path
	for _, acq := range entry.Acquisitions {
		head := PathElement{Type: acq.Type, Target: acq.Target}
		if len(acq.Indirect) == 0 {
			paths = append(paths, Path{Source: acq, Elements: []PathElement{head}})
			continue
		}
		for _, chain := range indirectChains(acq.Indirect) {
			elements := append([]PathElement{head}, chain...)
			paths = append(paths, Path{Source: acq, Elements: elements})
		}
	}
	return paths
}

func indirectChains(indirect []opds.IndirectAcquisition) [][]PathElement {
	var chains [][]PathElement
	for _, ind := range indirect {
		elem := PathElement{Type: ind.Type}
		if len(ind.Indirect) == 0 {
			chains = append(chains, []PathElement{elem})
			continue
		}
		for _, rest := range indirectChains(ind.Indirect) {
			chains = append(chains, append([]PathElement{elem}, rest...))
		}
	}
	return chains
}
