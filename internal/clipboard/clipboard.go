package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

type tool struct {
	name string
	args []string
}

// Ordered by preference per platform.
var toolsByOS = map[string][]tool{
	"darwin": {
		{name: "pbcopy"},
	},
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
}

func findTool(goos string, lookPath func(string) (string, error)) (string, []string, error) {
	for _, t := range toolsByOS[goos] {
		if path, err := lookPath(t.name); err == nil {
			return path, t.args, nil
		}
	}
	return "", nil, ErrToolNotFound
}

func Copy(ctx context.Context, text string) error {
	path, args, err := findTool(runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}
