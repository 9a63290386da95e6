package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	jsoniter "github.com/json-iterator/go"
	"github.com/mattn/go-isatty"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

// result of the command, printed as text or JSON.
type result struct {
	Method      string   `json:"method"`
	URL         string   `json:"url"`
	StatusCode  int      `json:"statusCode,omitempty"`
	Text        *string  `json:"text,omitempty"`
	State       string   `json:"state"`
	Error       string   `json:"error,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

func diagnostics(err error) []string {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		out = append(out, e.Error())
	}
	return out
}

type colorScheme struct {
	method    *color.Color
	url       *color.Color
	statusOK  *color.Color
	statusErr *color.Color
	warning   *color.Color
	err       *color.Color
}

func newColorScheme(out io.Writer, noColor bool) *colorScheme {
	s := &colorScheme{
		method:    color.New(color.FgBlue, color.Bold),
		url:       color.New(color.FgCyan),
		statusOK:  color.New(color.FgGreen, color.Bold),
		statusErr: color.New(color.FgRed, color.Bold),
		warning:   color.New(color.FgYellow),
		err:       color.New(color.FgRed),
	}
	if noColor || !isTerminal(out) {
		for _, c := range []*color.Color{s.method, s.url, s.statusOK, s.statusErr, s.warning, s.err} {
			c.DisableColor()
		}
	}
	return s
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func printJSON(out io.Writer, r result) error {
	bytes, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode result: %w", err)
	}
	_, err = fmt.Fprintln(out, string(bytes))
	return err
}

func printText(out io.Writer, colors *colorScheme, r result) {
	for _, d := range r.Diagnostics {
		_, _ = colors.warning.Fprintln(out, "Warning:", d)
	}

	_, _ = colors.method.Fprint(out, r.Method)
	_, _ = fmt.Fprint(out, " ")
	_, _ = colors.url.Fprint(out, r.URL)
	if r.StatusCode > 0 {
		status := colors.statusOK
		if r.StatusCode >= http.StatusBadRequest {
			status = colors.statusErr
		}
		_, _ = fmt.Fprint(out, " ")
		_, _ = status.Fprintf(out, "%d %s", r.StatusCode, http.StatusText(r.StatusCode))
	}
	_, _ = fmt.Fprintln(out)

	if r.Text != nil {
		_, _ = fmt.Fprintln(out, *r.Text)
	}
}
