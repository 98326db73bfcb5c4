package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"
)

// printf prints a message with a newline.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, "Warning: "+format+"\n", a...)
}

func newLogger(cCtx *cli.Context) golog.Logger {
	if cCtx.Bool(generalFlagDebug) {
		return golog.NewDebugLogger("shapegen")
	}
	return golog.NewLogger("shapegen")
}

// indexedPath returns path with "_<i>" inserted before its extension.
func indexedPath(path string, i int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), i, ext)
}
