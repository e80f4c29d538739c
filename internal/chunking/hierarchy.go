package chunking

import (
	"strings"

	"github.com/google/uuid"

	"coachrag/internal/domain"
)

// ParentSpan is a coarse context span over the same normalized text the
// child chunks came from. Parents are split independently of the
// children, so child-to-parent assignment is computed after the fact.
type ParentSpan struct {
	ID           string
	Content      string
	TokenCount   int
	ChildIndices []int
}

// HierarchyBuilder produces parent spans with a fixed larger token
// window and maps each child chunk to one parent. The primary mapping is
// positional (child i belongs to parent i/ratio); when the assigned
// parent does not actually contain the child's text, neighboring parents
// are checked so children near a parent boundary land in the span that
// really covers them.
type HierarchyBuilder struct {
	counter  domain.TokenCounter
	splitter *RecursiveSplitter
}

// NewHierarchyBuilder creates a builder whose parents target
// parentTokens per span, split without overlap.
func NewHierarchyBuilder(counter domain.TokenCounter, parentTokens int) *HierarchyBuilder {
	if parentTokens <= 0 {
		parentTokens = 2000
	}
	return &HierarchyBuilder{
		counter:  counter,
		splitter: NewRecursiveSplitter(counter, parentTokens, 0),
	}
}

// Build splits the normalized text into parent spans and assigns every
// child to exactly one parent. parentIDs[i] is the parent of children[i].
// Parents are exempt from the child min/max bounds.
func (h *HierarchyBuilder) Build(normalized string, children []string) (parents []ParentSpan, parentIDs []string) {
	if len(children) == 0 {
		return nil, nil
	}
	pieces := h.splitter.Split(normalized)
	if len(pieces) == 0 {
		pieces = []string{normalized}
	}
	parents = make([]ParentSpan, len(pieces))
	for i, p := range pieces {
		parents[i] = ParentSpan{
			ID:         uuid.NewString(),
			Content:    p,
			TokenCount: h.counter.Count(p),
		}
	}

	ratio := (len(children) + len(parents) - 1) / len(parents)
	if ratio < 1 {
		ratio = 1
	}
	parentIDs = make([]string, len(children))
	for i, child := range children {
		idx := i / ratio
		if idx >= len(parents) {
			idx = len(parents) - 1
		}
		idx = h.verifyContainment(parents, idx, child)
		parents[idx].ChildIndices = append(parents[idx].ChildIndices, i)
		parentIDs[i] = parents[idx].ID
	}
	return parents, parentIDs
}

// verifyContainment keeps the positional assignment when the parent's
// span contains the child text, otherwise scans the neighbors and then
// the remaining parents for one that does. When none contains it (the
// child may straddle a parent boundary) the positional guess stands.
func (h *HierarchyBuilder) verifyContainment(parents []ParentSpan, idx int, child string) int {
	needle := strings.TrimSpace(child)
	if needle == "" || strings.Contains(parents[idx].Content, needle) {
		return idx
	}
	for _, j := range []int{idx - 1, idx + 1} {
		if j >= 0 && j < len(parents) && strings.Contains(parents[j].Content, needle) {
			return j
		}
	}
	for j := range parents {
		if strings.Contains(parents[j].Content, needle) {
			return j
		}
	}
	return idx
}
