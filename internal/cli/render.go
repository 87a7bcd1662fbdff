// Package cli renders gateway results for terminals.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"infergate/internal/core"
	"infergate/internal/providers"
)

// Exit codes.
const (
	ExitSuccess   = 0
	ExitExhausted = 1
	ExitConfig    = 2
)

var (
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	errorBadge   = color.New(color.BgRed, color.FgWhite, color.Bold)
	warningBadge = color.New(color.FgYellow, color.Bold)
	infoText     = color.New(color.FgCyan)
	errorText    = color.New(color.FgRed)
	mutedText    = color.New(color.FgHiBlack)
	okText       = color.New(color.FgGreen, color.Bold)
)

// ExitCode maps a terminal result to the process exit code.
func ExitCode(r core.Result) int {
	switch r.Kind {
	case core.KindSuccess:
		return ExitSuccess
	case core.KindConfigError:
		return ExitConfig
	default:
		return ExitExhausted
	}
}

// RenderResult writes the completion text to out. Failures, including the
// trail of a success that needed fallback, go to diag.
func RenderResult(out, diag io.Writer, r core.Result) {
	for _, f := range r.Failures {
		renderFailure(diag, f)
	}

	switch r.Kind {
	case core.KindSuccess:
		successBadge.Fprintf(diag, " %s ", r.Provider)
		if r.Model != "" {
			mutedText.Fprintf(diag, " %s", r.Model)
		}
		fmt.Fprintln(diag)
		fmt.Fprintln(out, r.Text)
	case core.KindConfigError:
		errorBadge.Fprint(diag, " CONFIG ")
		fmt.Fprint(diag, " ")
		errorText.Fprintln(diag, r.Message)
	default:
		label := " ALL PROVIDERS FAILED "
		if r.Canceled {
			label = " CANCELED "
		}
		errorBadge.Fprintln(diag, label)
	}
}

func renderFailure(w io.Writer, f core.Failure) {
	warningBadge.Fprintf(w, "[%s]", f.Provider)
	fmt.Fprint(w, " ")
	r := f.Result
	switch r.Kind {
	case core.KindProviderError:
		errorText.Fprintf(w, "Error %d", r.StatusCode)
		if r.Category != "" {
			mutedText.Fprintf(w, " (%s)", r.Category)
		}
		if r.Message != "" {
			fmt.Fprintf(w, ": %s", r.Message)
		}
		if r.RetryAfter != "" {
			mutedText.Fprintf(w, " retry after %s", r.RetryAfter)
		}
		fmt.Fprintln(w)
	default:
		errorText.Fprint(w, string(r.Reason))
		if r.Message != "" {
			fmt.Fprintf(w, ": %s", r.Message)
		}
		fmt.Fprintln(w)
	}
}

// RenderStatus writes the credential check, one provider per line.
func RenderStatus(w io.Writer, chain core.FallbackChain, statuses []providers.Status) {
	infoText.Fprintf(w, "Fallback chain: %s\n", chain.String())
	for _, s := range statuses {
		if s.Configured {
			okText.Fprint(w, "  ✓ ")
			fmt.Fprintf(w, "%-12s", s.Name)
			detail := s.BaseURL
			if s.Credential != "" {
				detail = s.Credential + "  " + detail
			}
			mutedText.Fprintln(w, detail)
			continue
		}
		errorText.Fprint(w, "  ✗ ")
		fmt.Fprintf(w, "%-12s", s.Name)
		mutedText.Fprintf(w, "%s; set %s\n", s.Reason, s.CredentialEnv)
	}
}

// RenderModels writes a model listing.
func RenderModels(w io.Writer, provider string, models []core.LocalModel) {
	if len(models) == 0 {
		warningBadge.Fprintf(w, "no models available from %s\n", provider)
		return
	}
	infoText.Fprintf(w, "Models available from %s:\n", provider)
	for _, m := range models {
		fmt.Fprintf(w, "  - %s", m.Name)
		if m.Size > 0 {
			mutedText.Fprintf(w, " (%s)", humanSize(m.Size))
		}
		fmt.Fprintln(w)
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// JoinPrompt joins positional arguments into one prompt.
func JoinPrompt(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
