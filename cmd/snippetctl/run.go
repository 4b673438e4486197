package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	apihttp "github.com/GriffinCanCode/snippetlab/internal/api/http"
	"github.com/GriffinCanCode/snippetlab/internal/engine"
	"github.com/GriffinCanCode/snippetlab/internal/infrastructure/logging"
	"github.com/GriffinCanCode/snippetlab/internal/runner"
	"github.com/GriffinCanCode/snippetlab/internal/sandbox"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <id>",
	Short: "Evaluate a snippet and print its result",
	Long:  `Evaluate a snippet the way the viewer does and print the presentation result as text or HTML`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEvaluation,
}

func init() {
	runCmd.Flags().Bool("html", false, "print the result as HTML")
	runCmd.Flags().Duration("timeout", 0, "cut evaluation off after this long (0 disables, local only)")
	runCmd.Flags().Bool("console", false, "mirror snippet console output to stderr (local only)")
}

var kindColors = map[engine.Kind]*color.Color{
	engine.KindRendered:   color.New(color.FgGreen, color.Bold),
	engine.KindDiagnostic: color.New(color.FgRed, color.Bold),
	engine.KindEmpty:      color.New(color.FgYellow, color.Bold),
}

func runEvaluation(cmd *cobra.Command, args []string) error {
	asHTML, err := cmd.Flags().GetBool("html")
	if err != nil {
		return fmt.Errorf("failed to get html flag: %w", err)
	}

	start := time.Now()
	out, err := evaluate(cmd, args[0])
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	kind := engine.Kind(out.Kind)
	paint, ok := kindColors[kind]
	if !ok {
		paint = color.New(color.Bold)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s %s\n",
		paint.Sprint(kind),
		out.Snippet,
		color.HiBlackString("(%s)", elapsed.Round(time.Millisecond)),
	)

	if asHTML {
		fmt.Fprintln(cmd.OutOrStdout(), out.HTML)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), out.Text)
	}

	if kind == engine.KindDiagnostic {
		return fmt.Errorf("%s did not evaluate cleanly", out.Snippet)
	}
	return nil
}

// evaluate runs id locally or on the server and returns the result in the
// server's wire form either way.
func evaluate(cmd *cobra.Command, id string) (apihttp.EvaluateResponse, error) {
	rem, err := remoteFor(cmd)
	if err != nil {
		return apihttp.EvaluateResponse{}, err
	}
	if rem != nil {
		return rem.evaluate(cmd.Context(), id)
	}

	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return apihttp.EvaluateResponse{}, fmt.Errorf("failed to get timeout flag: %w", err)
	}
	mirror, err := cmd.Flags().GetBool("console")
	if err != nil {
		return apihttp.EvaluateResponse{}, fmt.Errorf("failed to get console flag: %w", err)
	}

	cat, err := openCatalog(cmd)
	if err != nil {
		return apihttp.EvaluateResponse{}, err
	}
	s, err := cat.Get(id)
	if err != nil {
		return apihttp.EvaluateResponse{}, err
	}

	logger := logging.NewNop()
	if mirror {
		cfg := logging.DefaultConfig()
		cfg.Level = "debug"
		cfg.Development = true
		if logger, err = logging.New(cfg); err != nil {
			return apihttp.EvaluateResponse{}, err
		}
		defer logger.Sync()
	}

	eval := runner.Bounded(runner.New(cat, sandbox.DefaultConfig(), logger, nil), timeout)
	res := eval.Evaluate(cmd.Context(), s)
	return apihttp.EvaluateResponse{
		Snippet: s.ID,
		Kind:    string(res.Kind()),
		HTML:    engine.HTML(res),
		Text:    engine.Text(res),
	}, nil
}
