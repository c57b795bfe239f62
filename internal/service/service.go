// Package service implements the gateway's HTTP-facing request handlers.
package service

import (
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(
	NewGatewayService,
	NewSchemaPublisher,
)
