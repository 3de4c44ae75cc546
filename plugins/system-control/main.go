// Package main provides a system volume plugin for macOS and Linux.
// It reports a 0..100 range and sets the output volume via osascript or amixer.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ayusman/handvolume/internal/plugin"
	"github.com/ayusman/handvolume/internal/sink"
)

// config is the optional plugin configuration passed by the host.
type config struct {
	AmixerControl string `json:"amixer_control"`
}

// actionHandler handles one request and returns the response data.
type actionHandler func(req *plugin.Request) (any, error)

// actionHandlers maps action names to their handler functions.
var actionHandlers = map[string]actionHandler{
	plugin.ActionGetRange: getRange,
	plugin.ActionSetLevel: setLevel,
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	data, err := handler(&req)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse(data)
}

func getRange(*plugin.Request) (any, error) {
	return plugin.RangeData{Min: sink.PercentMin, Max: sink.PercentMax}, nil
}

func setLevel(req *plugin.Request) (any, error) {
	var params plugin.LevelParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	var cfg config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}

	mixer, err := sink.NewSystem(cfg.AmixerControl, sink.CommandOptions{})
	if err != nil {
		return nil, err
	}
	defer mixer.Close()

	return nil, mixer.SetLevel(params.Value)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(plugin.Response{
		Success: false,
		Error:   errMsg,
	})
}

// writeSuccessResponse writes a success response with optional data to stdout.
func writeSuccessResponse(data any) {
	resp := plugin.Response{Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			writeErrorResponse(fmt.Sprintf("failed to encode data: %v", err))
			return
		}
		resp.Data = raw
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
