package logging

import (
	"fmt"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGELFWriter dials a Graylog GELF UDP input. Each Write becomes one GELF
// message, so it pairs with a slog handler that writes one record per call.
func NewGELFWriter(addr, facility string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("dial graylog %s: %w", addr, err)
	}
	w.Facility = facility
	return w, nil
}
