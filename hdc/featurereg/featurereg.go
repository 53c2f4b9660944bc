// Package featurereg is a compile-time feature-builder registry: each
// demo feature package (hdc-go/demo/led, /button, /env) calls
// RegisterBuilder from an init() function keyed by its class name, and
// cmd/hdc-hostsim / cmd/hdc-rp2 import each demo package and look its
// builder up by that package's ClassName constant.
package featurereg

import (
	"fmt"
	"sync"

	"hdc-go/hdc/model"
)

// BuildInput carries what a feature builder needs to construct its
// model.Feature: the wire id/instance name assigned by configuration, and
// whatever feature-specific parameters configuration supplies.
type BuildInput struct {
	ID     uint8
	Name   string
	Params map[string]any
}

// Builder constructs one Feature instance from a BuildInput.
type Builder interface {
	Build(in BuildInput) (*model.Feature, error)
}

// BuilderFunc adapts a plain function to Builder.
type BuilderFunc func(in BuildInput) (*model.Feature, error)

func (f BuilderFunc) Build(in BuildInput) (*model.Feature, error) { return f(in) }

var (
	mu       sync.RWMutex
	builders = map[string]Builder{}
)

// RegisterBuilder registers b under className. Panics on duplicate
// registration: a duplicate class name is a programming error caught at
// init time, not a runtime condition to recover from.
func RegisterBuilder(className string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := builders[className]; exists {
		panic(fmt.Sprintf("featurereg: builder already registered for class %q", className))
	}
	builders[className] = b
}

// Lookup returns the builder registered for className, if any.
func Lookup(className string) (Builder, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := builders[className]
	return b, ok
}
