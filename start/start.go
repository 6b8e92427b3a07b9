// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vexport"
	"vexport/pkg/media"
	"vexport/pkg/progress"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envPath string

	root := &cobra.Command{
		Use:           "vexport",
		Short:         "Deterministic timeline-to-video compositor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envPath, "env", "configs/env.yaml", "path to env.yaml")

	root.AddCommand(exportCmd(&envPath))
	root.AddCommand(probeCmd(&envPath))
	return root
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	return ctx, cancel
}

func exportCmd(envPath *string) *cobra.Command {
	var (
		outDir       string
		noFastStart  bool
		progressAddr string
	)

	cmd := &cobra.Command{
		Use:   "export <project.yaml>",
		Short: "Render a project file to MP4",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			app, err := vexport.NewApp(*envPath)
			if err != nil {
				return err
			}
			defer app.Exporter.Close()
			app.Start(ctx)

			if progressAddr != "" {
				go app.ServeProgress(ctx, progressAddr) //nolint:errcheck
			}

			go printProgress(ctx, app)

			result, err := app.ExportProject(ctx, args[0], outDir, !noFastStart)
			if err != nil {
				return err
			}

			fmt.Printf("exported %v frames in %v to %v\n",
				result.Frames, result.Elapsed.Round(1e7), result.Location)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory, defaults to storageDir")
	cmd.Flags().BoolVar(&noFastStart, "no-faststart", false, "write the moov after the mdat")
	cmd.Flags().StringVar(&progressAddr, "progress-addr", "", "serve progress websocket on this address")
	return cmd
}

func printProgress(ctx context.Context, app *vexport.App) {
	feed, cancel := app.Bus.Subscribe(64)
	defer cancel()

	for {
		select {
		case event := <-feed:
			printEvent(app, event)
		case <-ctx.Done():
			return
		}
	}
}

func printEvent(app *vexport.App, event progress.Event) {
	status := app.System.Status()

	switch event.Stage {
	case progress.StageProcessing:
		fmt.Printf("\r%3.0f%% frame %d/%d %.1ffps eta %.0fs cpu %d%% ram %d%%",
			event.Percentage,
			event.CurrentFrame, event.TotalFrames,
			event.RenderSpeed,
			event.EstimatedTimeRemaining,
			status.CPUUsage, status.RAMUsage,
		)
	case progress.StageError, progress.StageCancelled:
		fmt.Printf("\n%v: %v\n", event.Stage, event.Error)
	default:
		fmt.Printf("\n%v\n", event.Stage)
	}
}

func probeCmd(envPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := vexport.NewApp(*envPath)
			if err != nil {
				return err
			}

			prober := media.NewProber(app.Env.FFprobeBin)
			info, err := prober.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
