package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dbsmedya/goreconcile/internal/reconcile"
)

// selectRoots completes the pair of roots from args, asking on out and
// reading one path per line from in for any that are missing.
func selectRoots(in *bufio.Reader, out io.Writer, args []string) (string, string, error) {
	roots := append([]string(nil), args...)
	for len(roots) < 2 {
		fmt.Fprintf(out, "Folder %d: ", len(roots)+1)
		line, err := in.ReadString('\n')
		if path := strings.TrimSpace(line); path != "" {
			roots = append(roots, path)
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("no folder %d given: %w", len(roots)+1, err)
		}
	}
	return roots[0], roots[1], nil
}

// newConfirmFunc shows the plan and asks before a live run. With assumeYes
// the plan is still shown but no answer is read. End of input declines.
func newConfirmFunc(in *bufio.Reader, out io.Writer, assumeYes bool) reconcile.ConfirmFunc {
	return func(plan *reconcile.Plan) (bool, error) {
		reconcile.DisplayPlan(out, plan)
		if assumeYes {
			return true, nil
		}

		fmt.Fprint(out, "Apply these changes? [y/N]: ")
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
