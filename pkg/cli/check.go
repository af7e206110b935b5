package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/funvibe/lumen/internal/config"
	"github.com/funvibe/lumen/internal/conformance"
	"github.com/funvibe/lumen/internal/diagnostics"
	"github.com/funvibe/lumen/internal/manifest"
)

var checkCmd = &cobra.Command{
	Use:          "check <manifest.yaml> [manifest2.yaml...]",
	Short:        "Run the conformance queries of one or more manifests",
	RunE:         runCheck,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

var verbose bool

func init() {
	checkCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print passing queries too, not only failures")
}

func runCheck(cmd *cobra.Command, args []string) error {
	paths, err := expandManifestPaths(args)
	if err != nil {
		return err
	}
	failed := false
	for _, path := range paths {
		ok, err := checkManifest(cmd.OutOrStdout(), path)
		if err != nil {
			return err
		}
		if !ok {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("conformance expectations not met")
	}
	return nil
}

// expandManifestPaths resolves directory arguments to the manifest files
// they contain, in name order.
func expandManifestPaths(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && isManifestFile(entry.Name()) {
				out = append(out, filepath.Join(arg, entry.Name()))
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no manifest files found")
	}
	return out, nil
}

func isManifestFile(name string) bool {
	for _, ext := range config.ManifestFileExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// checkManifest runs every query of one manifest against a fresh checking
// session and reports per-query results. It returns false when an
// expectation was not met.
func checkManifest(out io.Writer, path string) (bool, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return false, err
	}
	universe, queries, err := manifest.Build(m)
	if err != nil {
		return false, err
	}

	sink := &diagnostics.Collector{}
	checker := conformance.NewChecker(universe, sink)
	if verbose {
		fmt.Fprintf(out, "%s: session %s\n", path, checker.Session)
	}

	allMet := true
	for _, q := range queries {
		before := len(sink.Diags)

		var conforms bool
		if q.Diagnose {
			_, conforms = checker.DiagnoseConformance(q.Type, q.Protocol, q.Pos)
		} else {
			_, conforms = checker.ConformsTo(q.Type, q.Protocol)
		}

		met := true
		switch q.Expect {
		case config.ExpectConforms:
			met = conforms
		case config.ExpectFails:
			met = !conforms
		}
		if !met {
			allMet = false
		}

		if verbose || !met {
			verdict := "does not conform"
			if conforms {
				verdict = "conforms"
			}
			status := paint("ok", colorGreen)
			if !met {
				status = paint("FAIL", colorRed)
			}
			fmt.Fprintf(out, "%s %s: %s %s to %s\n", status, path, q.Type, verdict, q.Protocol.Name)
		}
		for _, d := range sink.Diags[before:] {
			fmt.Fprintf(out, "  %s\n", d.Error())
		}
	}
	return allMet, nil
}

const (
	colorRed   = "31"
	colorGreen = "32"
)

var stdoutIsTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func paint(s, color string) string {
	if !stdoutIsTTY {
		return s
	}
	return "\033[" + color + "m" + s + "\033[0m"
}
