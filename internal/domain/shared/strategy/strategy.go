// Package strategy holds the identity contract shared by interchangeable domain algorithms.
package strategy

// Kind names the family of problems a strategy solves
type Kind string

// KindAllocation spreads a payment over outstanding bills
const KindAllocation Kind = "allocation"

// Valid reports whether k is a known family
func (k Kind) Valid() bool {
	return k == KindAllocation
}

// Strategy identifies an algorithm that can be picked at runtime
type Strategy interface {
	Name() string
	Kind() Kind
	Description() string
}

// Descriptor implements Strategy for algorithms that embed it
type Descriptor struct {
	name        string
	kind        Kind
	description string
}

// Describe creates a Descriptor
func Describe(name string, kind Kind, description string) Descriptor {
	return Descriptor{name: name, kind: kind, description: description}
}

func (d Descriptor) Name() string        { return d.name }
func (d Descriptor) Kind() Kind          { return d.kind }
func (d Descriptor) Description() string { return d.description }

// Qualified returns "kind/name", e.g. "allocation/auto"
func (d Descriptor) Qualified() string {
	return string(d.kind) + "/" + d.name
}
