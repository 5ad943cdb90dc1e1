package main

import (
	"fmt"
	"io"

	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/part"
)

func runInfo(args []string, out io.Writer) error {
	fs, configDir := commonFlags("info")
	if err := fs.Parse(args); err != nil {
		return err
	}
	// info never writes logs; a missing file just means defaults
	if err := config.Load(*configDir); err != nil {
		config.SetDefaults()
	}

	spec, lib, err := loadPart()
	if err != nil {
		return err
	}
	fmt.Fprint(out, part.New(spec.Name, spec).Info(lib).String())
	return nil
}
