// Command tinyreq issues a single HTTP request and prints the response.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tinyreq/tinyreq"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		method    string
		headers   []string
		data      string
		timeout   time.Duration
		redirects int
		ipv4      bool
		include   bool
	)

	cmd := &cobra.Command{
		Use:          "tinyreq URL",
		Short:        "issue an HTTP request and print the response",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := tinyreq.NewRequest(strings.ToUpper(method), args[0]).
				TimeoutConnect(timeout).
				TimeoutRead(timeout).
				TimeoutWrite(timeout).
				Redirects(redirects)
			if ipv4 {
				req = req.PreferFamily(tinyreq.IPv4)
			}
			for _, h := range headers {
				name, value, ok := strings.Cut(h, ":")
				if !ok || strings.TrimSpace(name) == "" {
					return fmt.Errorf("malformed header %q, want \"Name: value\"", h)
				}
				req = req.Set(strings.TrimSpace(name), strings.TrimSpace(value))
			}

			var (
				resp *tinyreq.Response
				err  error
			)
			if data != "" {
				resp, err = req.SendString(data)
			} else {
				resp, err = req.Call()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			statusColor(resp.StatusCode).Fprintf(cmd.ErrOrStderr(),
				"%s %d %s\n", resp.Proto, resp.StatusCode, resp.Status)
			if include {
				for _, h := range resp.Header {
					fmt.Fprintf(out, "%s: %s\n", h.Name, h.Value)
				}
				fmt.Fprintln(out)
			}
			body, err := resp.String()
			if err != nil {
				return err
			}
			fmt.Fprint(out, body)
			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "request", "X", "GET", "request method")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "header to send, \"Name: value\" (repeatable)")
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "connect/read/write timeout, 0 to block forever")
	cmd.Flags().IntVar(&redirects, "redirects", tinyreq.DefaultRedirects, "redirect hops to follow, 0 to disable")
	cmd.Flags().BoolVarP(&ipv4, "ipv4", "4", false, "prefer IPv4 addresses")
	cmd.Flags().BoolVarP(&include, "include", "i", false, "print response headers")
	return cmd
}

func statusColor(code int) *color.Color {
	switch code / 100 {
	case 2:
		return color.New(color.FgGreen)
	case 3:
		return color.New(color.FgYellow)
	case 4, 5:
		return color.New(color.FgRed)
	}
	return color.New(color.FgWhite)
}
