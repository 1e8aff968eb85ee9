package clipboard

import (
	"fmt"
	"io"
	"os/exec"
)

func clipboardGet(cmd *exec.Cmd) ([]byte, error) {
	return cmd.Output()
}

func clipboardSet(data []byte, cmd *exec.Cmd) error {
	var (
		in  io.WriteCloser
		err error
	)

	if in, err = cmd.StdinPipe(); err != nil {
		return err
	}

	if err = cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, cmd.Path, err)
	}

	if _, err = in.Write(data); err != nil {
		return err
	}

	if err = in.Close(); err != nil {
		return err
	}

	if err = cmd.Wait(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, cmd.Path, err)
	}
	return nil
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
