package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Priya8975/event-inserter/internal/datagen"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var (
		pairs int
		out   string
		host  string
		typ   string
		seed  uint64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a test input file with shuffled start/finish pairs",
		Example: `  eventinserter generate --pairs 20000000 --out data.json
  eventinserter generate --pairs 10 --seed 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}

			return datagen.Generate(w, datagen.Options{
				Pairs:     pairs,
				Host:      host,
				Type:      typ,
				StartTime: time.Now().UnixMilli(),
				Seed:      seed,
			})
		},
	}

	cmd.Flags().IntVarP(&pairs, "pairs", "n", 10, "number of id pairs (the file has twice as many lines)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&host, "host", "12345", "host field of every item")
	cmd.Flags().StringVar(&typ, "type", "APPLICATION_LOG", "type field of every item")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "shuffle seed (default: time based)")

	return cmd
}
