// Package plugin discovers external sink plugins and talks to them with
// one JSON request on stdin and one JSON response on stdout.
package plugin

import (
	"encoding/json"
	"slices"
)

// Actions understood by sink plugins.
const (
	// ActionGetRange returns RangeData.
	ActionGetRange = "get-range"
	// ActionSetLevel takes LevelParams.
	ActionSetLevel = "set-level"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	return slices.Contains(m.Actions, action)
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action string          `json:"action"`
	Config json.RawMessage `json:"config,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RangeData is the payload of a get-range response.
type RangeData struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// LevelParams are the params of a set-level request.
type LevelParams struct {
	Value float64 `json:"value"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
