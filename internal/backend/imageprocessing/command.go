package imageprocessing

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"time"
)

// Command transforms a decoded image.
type Command interface {
	Name() string
	Execute(img image.Image) (image.Image, error)
}

// CommandFactory creates a command from configuration parameters
type CommandFactory func(params map[string]any) (Command, error)

// CommandRegistry maps command names to factories
type CommandRegistry struct {
	factories map[string]CommandFactory
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		factories: make(map[string]CommandFactory),
	}
}

// Register adds a command factory to the registry
func (r *CommandRegistry) Register(name string, factory CommandFactory) error {
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("command factory cannot be nil")
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("command %s is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create instantiates a command by name with the given parameters
func (r *CommandRegistry) Create(name string, params map[string]any) (Command, error) {
	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("unknown command: %s", name)
	}
	command, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create command %s: %w", name, err)
	}
	return command, nil
}

// DefaultRegistry has the built-in commands registered
var DefaultRegistry = func() *CommandRegistry {
	registry := NewCommandRegistry()
	_ = registry.Register(fitName, NewFitCommand)
	return registry
}()

func getIntParam(params map[string]any, key string, defaultValue int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultValue
}

// CommandInvoker decodes once, applies its commands in order and encodes
// the result as JPEG.
type CommandInvoker struct {
	commands []Command
	quality  int
}

func NewCommandInvoker(quality int, commands ...Command) *CommandInvoker {
	return &CommandInvoker{commands: commands, quality: quality}
}

func (i *CommandInvoker) Execute(imageData []byte) ([]byte, error) {
	start := time.Now()

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	for idx, command := range i.commands {
		img, err = command.Execute(img)
		if err != nil {
			slog.Error("command execution failed",
				"index", idx,
				"command_name", command.Name(),
				"error", err)
			return nil, fmt.Errorf("command %s (index %d) failed: %w", command.Name(), idx, err)
		}
	}

	encoded, err := EncodeJPEG(img, i.quality)
	if err != nil {
		return nil, err
	}
	slog.Debug("image processing pipeline completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"command_count", len(i.commands),
		"input_size_bytes", len(imageData),
		"output_size_bytes", len(encoded))
	return encoded, nil
}
