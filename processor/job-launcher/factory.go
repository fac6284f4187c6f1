package joblauncher

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the job-launcher component with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        componentName,
		Factory:     NewComponent,
		Schema:      launcherSchema,
		Type:        "processor",
		Protocol:    "http",
		Domain:      "corevalid",
		Description: "Launches CORE valid computations from task updates and operator requests",
		Version:     componentVersion,
	})
}
