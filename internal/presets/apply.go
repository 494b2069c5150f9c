package presets

import (
	"context"
	"errors"
	"fmt"

	"github.com/KevinKickass/HomeGateway/internal/helios"
)

var ErrNotWritable = errors.New("parameter is not writable")

// Writer is the part of the device manager a preset needs.
type Writer interface {
	Registry() *helios.Registry
	WriteParameter(ctx context.Context, name string, v helios.Value, source string) helios.Status
}

// Result is the outcome of one preset assignment.
type Result struct {
	Parameter string        `json:"parameter"`
	Value     string        `json:"value"`
	Status    helios.Status `json:"status"`
}

// Resolve checks every assignment against the registry and parses the values.
// Nothing is written when any assignment is invalid.
func Resolve(registry *helios.Registry, p *Preset) ([]helios.Value, error) {
	values := make([]helios.Value, 0, len(p.Values))
	var errs []error

	for _, a := range p.Values {
		desc, err := registry.Descriptor(a.Parameter)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !registry.IsWritable(a.Parameter) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNotWritable, a.Parameter))
			continue
		}
		v, err := helios.ParseValue(desc, a.Value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values = append(values, v)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("preset %s: %w", p.Name, errors.Join(errs...))
	}
	return values, nil
}

// Apply writes the preset values in file order. A failed write does not stop
// the remaining ones; the caller gets one result per assignment.
func Apply(ctx context.Context, w Writer, p *Preset) ([]Result, error) {
	values, err := Resolve(w.Registry(), p)
	if err != nil {
		return nil, err
	}

	source := "preset:" + p.Name
	results := make([]Result, 0, len(values))
	for i, v := range values {
		st := w.WriteParameter(ctx, p.Values[i].Parameter, v, source)
		results = append(results, Result{
			Parameter: p.Values[i].Parameter,
			Value:     v.String(),
			Status:    st,
		})
	}
	return results, nil
}
