package multivp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// CommandDetector runs an external program for each image. The program is
// invoked as
//
//	<Path> <Args...> --image <path> --length-threshold <n> \
//	    --principal-point <x>,<y> --focal-length <f> --seed <s>
//
// and must print the directions as a JSON array of [x, y, z] triples.
type CommandDetector struct {
	Path string
	Args []string
	// Env is appended to the current environment.
	Env []string
}

// ParseCommand splits a command line on whitespace into a CommandDetector.
func ParseCommand(cmdline string) (*CommandDetector, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty detector command")
	}
	return &CommandDetector{Path: fields[0], Args: fields[1:]}, nil
}

// FindVPs implements Detector.
func (c *CommandDetector) FindVPs(ctx context.Context, path string, p Params) ([]r3.Vec, error) {
	args := append(append([]string(nil), c.Args...),
		"--image", path,
		"--length-threshold", formatFloat(p.LengthThreshold),
		"--principal-point", formatFloat(p.PrincipalX)+","+formatFloat(p.PrincipalY),
		"--focal-length", formatFloat(p.FocalLength),
		"--seed", strconv.FormatInt(p.Seed, 10),
	)

	cmd := exec.CommandContext(ctx, c.Path, args...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", c.Path, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", c.Path, err)
	}
	return parseDirections(stdout.Bytes())
}

func parseDirections(data []byte) ([]r3.Vec, error) {
	var raw [][]float64
	if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse detector output: %w", err)
	}
	dirs := make([]r3.Vec, 0, len(raw))
	for i, v := range raw {
		if len(v) != 3 {
			return nil, fmt.Errorf("direction %d has %d components, want 3", i, len(v))
		}
		dirs = append(dirs, r3.Vec{X: v[0], Y: v[1], Z: v[2]})
	}
	return dirs, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
