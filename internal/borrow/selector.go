package borrow

import (
	"sort"

	"github.com/libshelf/borrowd/internal/accounts"
	"github.com/libshelf/borrowd/internal/opds"
)

// Capabilities describes what this installation can actually execute:
// which final content types it can store and read, and which DRM schemes
// have a configured connector.
type Capabilities struct {
	FinalTypes       []string
	AdobeSupported   bool
	AxisNowSupported bool
}

// SupportsFinal reports whether mime is a supported final content type.
func (c Capabilities) SupportsFinal(mime string) bool {
	for _, t := range c.FinalTypes {
		if opds.TypesCompatible(t, mime) {
			return true
		}
	}
	return false
}

// PickBestAcquisitionPath chooses the best locally-executable path from a
// catalog entry, or nil when nothing is executable. Every intermediate hop
// must have a registered subtask and the final hop must be a supported
// final content type; DRM hops additionally require a configured connector.
// Among candidates, shorter paths win, then Adobe ACSM over AxisNow.
func PickBestAcquisitionPath(registry *Registry, caps Capabilities, account *accounts.Account, entry *opds.Entry) *Path {
	var candidates []Path
	for _, p := range PathsOf(entry) {
		if pathExecutable(registry, caps, account, p) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if len(a.Elements) != len(b.Elements) {
			return len(a.Elements) < len(b.Elements)
		}
		return drmRank(a) < drmRank(b)
	})

	best := candidates[0]
	return &best
}

func pathExecutable(registry *Registry, caps Capabilities, account *accounts.Account, p Path) bool {
	if !caps.SupportsFinal(p.Final().Type) {
		return false
	}
	for _, elem := range p.Elements {
		switch {
		case opds.TypesCompatible(elem.Type, opds.TypeACSM):
			if !caps.AdobeSupported {
				return false
			}
		case opds.TypesCompatible(elem.Type, opds.TypeAxisNow):
			if !caps.AxisNowSupported {
				return false
			}
		}
		if !registry.Supports(account, elem) {
			return false
		}
	}
	return true
}

// drmRank orders DRM schemes by preference: Adobe ACSM first, AxisNow
// second, everything else after.
func drmRank(p Path) int {
	switch {
	case p.ContainsType(opds.TypeACSM):
		return 0
	case p.ContainsType(opds.TypeAxisNow):
		return 1
	default:
		return 2
	}
}
