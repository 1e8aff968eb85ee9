//go:build linux

package clipboard

import (
	"context"
	"os/exec"
)

type xSel struct{}

func (m *xSel) Set(ctx context.Context, data []byte, primary bool) error {
	return clipboardSet(data,
		exec.CommandContext(ctx, "xsel", "--input", selectionFlag(primary)),
	)
}

func (m *xSel) Get(ctx context.Context, primary bool) ([]byte, error) {
	return clipboardGet(exec.CommandContext(ctx, "xsel", "--output", selectionFlag(primary)))
}

func selectionFlag(primary bool) string {
	if primary {
		return "--primary"
	}
	return "--clipboard"
}
