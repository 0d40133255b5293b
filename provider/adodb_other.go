//go:build !windows

package provider

import (
	"context"

	"github.com/nickyhof/ADOBridge/core"
)

// ADODB is only available where the ADODB COM objects are registered.
type ADODB struct{}

func (ADODB) Open(ctx context.Context, connection string) (core.Connection, error) {
	return nil, core.NewProviderError(core.CodeInvalidClassString, "Provider cannot be found. ADODB.Connection requires Windows.")
}
