package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/penaguerrero/nptt/internal/fitshdr"
)

// HeaderCard is one keyword record in the header show payload.
type HeaderCard struct {
	Keyword string `json:"keyword"`
	Value   string `json:"value"`
	Comment string `json:"comment,omitempty"`
}

// NewHeaderCommand creates the header command group.
func NewHeaderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "header",
		Short: "Inspect and edit FITS headers",
	}

	cmd.AddCommand(newHeaderShowCommand(rootOpts))
	cmd.AddCommand(newHeaderSetCommand(rootOpts))
	return cmd
}

func newHeaderShowCommand(rootOpts *RootOptions) *cobra.Command {
	var extname string

	cmd := &cobra.Command{
		Use:   "show <file> [keys...]",
		Short: "Print header keywords from a FITS file",
		Long: `Print header keywords from the primary HDU of a FITS file.

With key arguments, only matching keywords are printed; without, the
whole header. Use --ext to read a named extension instead.

Example:
  nptt header show final_output_caldet1_NRS1.fits
  nptt header show file.fits FILTER GRATING --ext SCI`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeaderShow(rootOpts, args[0], args[1:], extname, cmd)
		},
	}

	cmd.Flags().StringVar(&extname, "ext", "", "read the extension with this EXTNAME instead of the primary HDU")
	return cmd
}

func runHeaderShow(opts *RootOptions, path string, keys []string, extname string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	hdr, err := readHeader(path, extname)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read header", err)
	}

	var cards []HeaderCard
	if len(keys) == 0 {
		for _, c := range hdr.Cards() {
			cards = append(cards, HeaderCard{Keyword: c.Keyword, Value: c.Value, Comment: c.Comment})
		}
	} else {
		for _, key := range keys {
			c, ok := hdr.Get(strings.ToUpper(key))
			if !ok {
				return NewExitError(ExitCommandError, fmt.Sprintf("keyword %s not found", strings.ToUpper(key)))
			}
			cards = append(cards, HeaderCard{Keyword: c.Keyword, Value: c.Value, Comment: c.Comment})
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(cards)
	}
	for _, c := range cards {
		if c.Comment != "" {
			fmt.Fprintf(formatter.Writer, "%-8s = %s / %s\n", c.Keyword, c.Value, c.Comment)
		} else {
			fmt.Fprintf(formatter.Writer, "%-8s = %s\n", c.Keyword, c.Value)
		}
	}
	return nil
}

func readHeader(path, extname string) (*fitshdr.Header, error) {
	if extname != "" {
		return fitshdr.ReadExtension(path, extname)
	}
	return fitshdr.ReadPrimary(path)
}

func newHeaderSetCommand(rootOpts *RootOptions) *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "set <file> <key> <value>",
		Short: "Set a keyword in the primary header",
		Long: `Set a keyword in the primary header of a FITS file, in place.

Quoted values become FITS strings, T/F become logicals, numbers stay
numeric, anything else is written as a string.

Example:
  nptt header set file.fits FILTER F100LP
  nptt header set file.fits SRCTYPE POINT --comment 'source type'`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeaderSet(rootOpts, args[0], args[1], args[2], comment, cmd)
		},
	}

	cmd.Flags().StringVar(&comment, "comment", "", "comment for the keyword")
	return cmd
}

func runHeaderSet(opts *RootOptions, path, key, value, comment string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	keyword := strings.ToUpper(key)
	if err := fitshdr.SetKeyword(path, keyword, value, comment); err != nil {
		return WrapExitError(ExitCommandError, "failed to set keyword", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(HeaderCard{Keyword: keyword, Value: value, Comment: comment})
	}
	fmt.Fprintf(formatter.Writer, "%s = %s\n", keyword, value)
	return nil
}
