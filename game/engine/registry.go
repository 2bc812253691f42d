package engine

import "fmt"

// Registry holds adventurers in turn order
type Registry struct {
	adventurers []*Adventurer
	byName      map[string]*Adventurer
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Adventurer),
	}
}

// Add appends an adventurer to the turn order
func (r *Registry) Add(adv *Adventurer) error {
	if adv.Name == "" {
		return fmt.Errorf("%w: adventurer name is required", ErrMalformedRecord)
	}
	if _, exists := r.byName[adv.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAdventurer, adv.Name)
	}
	r.adventurers = append(r.adventurers, adv)
	r.byName[adv.Name] = adv
	return nil
}

// Len returns the number of adventurers
func (r *Registry) Len() int {
	return len(r.adventurers)
}

// At returns the adventurer at the given turn index
func (r *Registry) At(i int) *Adventurer {
	return r.adventurers[i]
}

// Get looks an adventurer up by name
func (r *Registry) Get(name string) (*Adventurer, bool) {
	adv, ok := r.byName[name]
	return adv, ok
}

// All returns the adventurers in turn order
func (r *Registry) All() []*Adventurer {
	return r.adventurers
}

// MaxScriptLength returns the length of the longest script
func (r *Registry) MaxScriptLength() int {
	longest := 0
	for _, adv := range r.adventurers {
		if n := adv.ScriptLength(); n > longest {
			longest = n
		}
	}
	return longest
}

// Snapshot returns copies of all adventurers in turn order
func (r *Registry) Snapshot() []Adventurer {
	out := make([]Adventurer, len(r.adventurers))
	for i, adv := range r.adventurers {
		out[i] = *adv
	}
	return out
}
