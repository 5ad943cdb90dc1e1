package main

import (
	"fmt"

	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/part"
	"github.com/rcsfx/extension/internal/resource"
)

// loadPart resolves the configured part block and the resource library,
// extended with any configured resource definitions.
func loadPart() (part.Spec, *resource.Library, error) {
	lib := resource.DefaultLibrary()
	extra, err := config.GetResources()
	if err != nil {
		return part.Spec{}, nil, err
	}
	for _, r := range extra {
		lib.Add(resource.Definition{Name: r.Name, Density: r.Density})
	}

	pc, err := config.GetPartConfig()
	if err != nil {
		return part.Spec{}, nil, err
	}
	spec, err := part.SpecFromConfig(pc)
	if err != nil {
		return part.Spec{}, nil, fmt.Errorf("part config: %w", err)
	}
	return spec, lib, nil
}
