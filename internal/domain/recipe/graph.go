package recipe

import (
	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
)

// Graph is the recipe containment adjacency built from SUBRECIPE ingredients.
// Edges are kept separate from the entities themselves so traversal never
// loads recipe rows it does not need.
type Graph struct {
	contains    map[uuid.UUID][]uuid.UUID // parent -> referenced sub-recipes
	containedBy map[uuid.UUID][]uuid.UUID // sub-recipe -> parents
}

// BuildGraph constructs the containment graph from an establishment's
// SUBRECIPE ingredients.
func BuildGraph(subRefs []Ingredient) *Graph {
	g := &Graph{
		contains:    make(map[uuid.UUID][]uuid.UUID),
		containedBy: make(map[uuid.UUID][]uuid.UUID),
	}
	for i := range subRefs {
		if subRefs[i].Type != IngredientTypeSubRecipe || subRefs[i].SubRecipeID == nil {
			continue
		}
		parent := subRefs[i].RecipeID
		sub := *subRefs[i].SubRecipeID
		g.contains[parent] = append(g.contains[parent], sub)
		g.containedBy[sub] = append(g.containedBy[sub], parent)
	}
	return g
}

// Parents returns the recipes directly containing the given recipe.
func (g *Graph) Parents(id uuid.UUID) []uuid.UUID {
	return g.containedBy[id]
}

// SubRecipes returns the recipes directly contained by the given recipe.
func (g *Graph) SubRecipes(id uuid.UUID) []uuid.UUID {
	return g.contains[id]
}

type visitState uint8

const (
	stateUnvisited visitState = iota
	stateOnPath
	stateDone
)

// ReachableParents walks the contained-by relation upward from the frontier
// and returns the transitive closure (frontier included). The walk uses an
// explicit stack with an in-progress-path state: re-entering a recipe on the
// current path means the containment graph has a cycle, which aborts the
// whole transaction.
func (g *Graph) ReachableParents(frontier []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	state := make(map[uuid.UUID]visitState)

	type frame struct {
		id   uuid.UUID
		next int
	}

	for _, start := range frontier {
		if state[start] == stateDone {
			continue
		}
		stack := []frame{{id: start}}
		state[start] = stateOnPath

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			parents := g.containedBy[top.id]

			if top.next >= len(parents) {
				state[top.id] = stateDone
				stack = stack[:len(stack)-1]
				continue
			}

			parent := parents[top.next]
			top.next++

			switch state[parent] {
			case stateOnPath:
				return nil, shared.NewCycleDetectedError("Recipe containment graph has a cycle involving recipe " + parent.String())
			case stateDone:
				continue
			default:
				state[parent] = stateOnPath
				stack = append(stack, frame{id: parent})
			}
		}
	}

	reachable := make(map[uuid.UUID]struct{}, len(state))
	for id := range state {
		reachable[id] = struct{}{}
	}
	return reachable, nil
}

// TopologicalOrder orders the given recipe set so that every recipe appears
// after all of its sub-recipes within the set. This is the processing order
// the propagator needs: leaf recipes first, containers last.
func (g *Graph) TopologicalOrder(set map[uuid.UUID]struct{}) ([]uuid.UUID, error) {
	// In-degree restricted to the set: number of sub-recipes still pending.
	indegree := make(map[uuid.UUID]int, len(set))
	for id := range set {
		count := 0
		for _, sub := range g.contains[id] {
			if _, ok := set[sub]; ok {
				count++
			}
		}
		indegree[id] = count
	}

	queue := make([]uuid.UUID, 0, len(set))
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]uuid.UUID, 0, len(set))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, parent := range g.containedBy[id] {
			if _, ok := set[parent]; !ok {
				continue
			}
			indegree[parent]--
			if indegree[parent] == 0 {
				queue = append(queue, parent)
			}
		}
	}

	if len(order) != len(set) {
		return nil, shared.NewCycleDetectedError("Recipe containment graph has a cycle")
	}
	return order, nil
}
