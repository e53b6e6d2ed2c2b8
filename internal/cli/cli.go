package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"monghwa-dream-gateway/internal/gemini"
	"monghwa-dream-gateway/internal/styles"
)

type Dreamer interface {
	InterpretResult(ctx context.Context, dreamText string) gemini.Result
	GenerateImageResult(ctx context.Context, dreamText, style string) gemini.Result
}

// Options.NewDreamer is called lazily so "styles" works without credentials.
type Options struct {
	NewDreamer func() (Dreamer, error)
}

func NewRootCmd(opts Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "dream",
		Short:         "Interpret and illustrate dreams with Gemini",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newInterpretCmd(opts))
	root.AddCommand(newImageCmd(opts))
	root.AddCommand(newStylesCmd())
	return root
}

func newInterpretCmd(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "interpret <dream text...>",
		Short: "Print a short interpretation of the dream",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.NewDreamer()
			if err != nil {
				return err
			}

			res := d.InterpretResult(cmd.Context(), strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), res.String())
			return res.Err()
		},
	}
}

func newImageCmd(opts Options) *cobra.Command {
	var styleFlag string
	var outFlag string

	cmd := &cobra.Command{
		Use:   "image <dream text...>",
		Short: "Illustrate the dream as a data URI or a PNG file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.NewDreamer()
			if err != nil {
				return err
			}

			res := d.GenerateImageResult(cmd.Context(), strings.Join(args, " "), styles.Resolve(styleFlag))
			if res.Kind != gemini.KindImage || outFlag == "" {
				fmt.Fprintln(cmd.OutOrStdout(), res.String())
				return res.Err()
			}

			if err := writeImage(outFlag, res.String()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dream image saved at: %s\n", outFlag)
			return nil
		},
		Example: `dream image "하늘을 나는 고래" --style watercolor --out whale.png`,
	}
	cmd.Flags().StringVarP(&styleFlag, "style", "s", "", "Style key or free-form style name")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "Write the decoded image to this path instead of printing the data URI")
	return cmd
}

func newStylesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List the built-in illustration styles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range styles.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", s.Key, s.Name)
			}
			return nil
		},
	}
}

func writeImage(path, dataURI string) error {
	_, data, err := gemini.DecodeDataURI(dataURI)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if len(data) == 0 {
		return errors.New("decode image: empty payload")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
