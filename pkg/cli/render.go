package cli

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/getmockd/reqcap/pkg/cli/internal/output"
	"github.com/getmockd/reqcap/pkg/request"
)

// RenderOutput is the JSON form of the render command.
type RenderOutput struct {
	Method   string              `json:"method"`
	URL      string              `json:"url"`
	Headers  map[string][]string `json:"headers"`
	Body     string              `json:"body"`
	BodySize int                 `json:"bodySize"`
	Rendered string              `json:"rendered"`
	Matches  []any               `json:"matches,omitempty"`
}

func newRenderCommand() *cobra.Command {
	var (
		authority string
		jsonPath  string
	)

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Print the diagnostic form of a raw HTTP/1.1 request",
		Long: `Read a raw HTTP/1.1 request from a file (or stdin when no file or "-" is
given), capture it exactly as the server would, and print its rendering:

  <METHOD> <URL>
  <Name>: <v1>,<v2>
  <body>`,
		Example: `  # Render a saved request
  reqcap render request.http

  # Pipe a request and extract a field from its JSON body
  printf 'POST /orders HTTP/1.1\r\nHost: x\r\nContent-Length: 9\r\n\r\n{"id":42}' | reqcap render --jsonpath '$.id'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			name := "stdin"
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in, name = f, args[0]
			}

			snap, err := readSnapshot(in, authority)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}

			var matches []any
			if jsonPath != "" {
				if matches, err = request.QueryJSONPath(snap, jsonPath); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if jsonOutput(cmd) {
				return output.JSON(w, RenderOutput{
					Method:   snap.Method,
					URL:      snap.URL.String(),
					Headers:  snap.Headers.Map(),
					Body:     snap.BodyText(),
					BodySize: len(snap.Body),
					Rendered: snap.String(),
					Matches:  matches,
				})
			}

			if jsonPath != "" {
				for _, m := range matches {
					if err := output.JSON(w, m); err != nil {
						return err
					}
				}
				return nil
			}

			if err := request.RenderTo(w, snap); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d headers, %s body\n",
				snap.Headers.Len(), humanize.Bytes(uint64(len(snap.Body))))
			return nil
		},
	}

	cmd.Flags().StringVar(&authority, "authority", "", "Host used to resolve origin-form targets (default localhost)")
	cmd.Flags().StringVar(&jsonPath, "jsonpath", "", "Print the values selected by a JSONPath expression over the JSON body")
	return cmd
}

// readSnapshot parses one request from r and captures it.
func readSnapshot(r io.Reader, authority string) (*request.Snapshot, error) {
	req, err := http.ReadRequest(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	defer req.Body.Close()
	return request.CaptureHTTP(req, request.WithDefaultAuthority(authority))
}
