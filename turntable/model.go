package turntable

import (
	"errors"
	"fmt"
)

// ErrUnsupportedModel is returned for model names other than RP8000 and RP8000mk2.
var ErrUnsupportedModel = errors.New("unsupported model")

// Model identifies a turntable firmware family.
type Model int

const (
	ModelUnknown Model = iota
	RP8000             // mk1, legacy 0x08 display commands
	RP8000mk2
)

var modelNames = map[Model]string{
	RP8000:    "RP8000",
	RP8000mk2: "RP8000mk2",
}

// String returns the model identifier, which is also the port name substring.
func (m Model) String() string {
	if name, ok := modelNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel accepts exactly "RP8000" or "RP8000mk2".
func ParseModel(s string) (Model, error) {
	for m, name := range modelNames {
		if s == name {
			return m, nil
		}
	}
	return ModelUnknown, fmt.Errorf("%w %q: only %q and %q are supported",
		ErrUnsupportedModel, s, RP8000.String(), RP8000mk2.String())
}

// Models lists the supported models.
func Models() []Model {
	return []Model{RP8000, RP8000mk2}
}
