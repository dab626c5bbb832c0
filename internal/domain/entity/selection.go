package entity

import "strings"

// BackendID identifies one of the interchangeable summarization backends.
type BackendID string

const (
	// ModelA is the first backend (mT5 in the reference deployment).
	ModelA BackendID = "ModelA"
	// ModelB is the second backend (mBART in the reference deployment).
	ModelB BackendID = "ModelB"
)

// Backends lists every known backend in a stable order.
var Backends = []BackendID{ModelA, ModelB}

// backendAliases maps the selector values clients send to backend IDs.
var backendAliases = map[string]BackendID{
	"model1": ModelA,
	"modela": ModelA,
	"model2": ModelB,
	"modelb": ModelB,
}

// ParseBackendID resolves a client selector. An empty selector yields ModelA.
func ParseBackendID(s string) (BackendID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ModelA, nil
	}
	if id, ok := backendAliases[strings.ToLower(s)]; ok {
		return id, nil
	}
	return "", &InvalidSelectionError{Field: "selectedModel", Value: s}
}

// Valid reports whether id is a known backend.
func (id BackendID) Valid() bool {
	return id == ModelA || id == ModelB
}

// Selector returns the wire value clients use for id.
func (id BackendID) Selector() string {
	switch id {
	case ModelA:
		return "model1"
	case ModelB:
		return "model2"
	default:
		return string(id)
	}
}

// LengthMode selects between whole-text and chunked summarization.
type LengthMode string

const (
	// Short summarizes the whole text in a single backend call.
	Short LengthMode = "short"
	// Long summarizes chunk by chunk and concatenates the results.
	Long LengthMode = "long"
)

// ParseLengthMode resolves the selectedLength request field.
func ParseLengthMode(s string) (LengthMode, error) {
	switch m := LengthMode(strings.ToLower(strings.TrimSpace(s))); m {
	case Short, Long:
		return m, nil
	default:
		return "", &InvalidSelectionError{Field: "selectedLength", Value: s}
	}
}

// Valid reports whether m is a known length mode.
func (m LengthMode) Valid() bool {
	return m == Short || m == Long
}
