package joblauncher

import (
	"github.com/c360studio/corevalid-adapter/launcher"
	"github.com/c360studio/semstreams/component"
)

func init() {
	if err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      launcher.LaunchRequestType.Domain,
		Category:    launcher.LaunchRequestType.Category,
		Version:     launcher.LaunchRequestType.Version,
		Description: "Run request for a CORE valid computation",
		Factory:     func() any { return &launcher.LaunchRequest{} },
	}); err != nil {
		panic("failed to register LaunchRequest: " + err.Error())
	}
}
