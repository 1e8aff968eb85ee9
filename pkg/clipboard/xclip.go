//go:build linux

package clipboard

import (
	"context"
	"os/exec"
)

type xClip struct{}

func (m *xClip) Set(ctx context.Context, data []byte, primary bool) error {
	return clipboardSet(data,
		exec.CommandContext(ctx, "xclip", "-in", "-selection", selectionName(primary)),
	)
}

func (m *xClip) Get(ctx context.Context, primary bool) ([]byte, error) {
	return clipboardGet(exec.CommandContext(ctx, "xclip", "-out", "-selection", selectionName(primary)))
}

func selectionName(primary bool) string {
	if primary {
		return "primary"
	}
	return "clipboard"
}
