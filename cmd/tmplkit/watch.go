package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kdsmith18542/tmplkit/watcher"
)

var errNothingToWatch = errors.New("nothing to watch: no local sources, template or watch directories")

// watchDirs returns the local message sources, template directories and
// extra watch directories, in that order.
func (a *app) watchDirs() []string {
	var dirs []string
	if len(a.cfg.Sources) > 0 {
		sources, _ := a.messageSources()
		dirs = append(dirs, sources.LocalDirs()...)
	}
	dirs = append(dirs, a.cfg.Templates...)
	dirs = append(dirs, a.cfg.WatchDirs...)
	return dirs
}

func (a *app) newWatcher() (*watcher.Watcher, error) {
	dirs := a.watchDirs()
	if len(dirs) == 0 {
		return nil, errNothingToWatch
	}
	return watcher.New(dirs, watcher.WithLogger(a.logger))
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print add, change and unlink events for message and template files",
		Long: `watch creates any missing directories, then prints one line per settled
filesystem change until interrupted. A file is reported once its size and
modification time have stopped changing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.newWatcher()
			if err != nil {
				return err
			}
			defer w.Close()

			ctx := cmd.Context()
			events := w.Events()
			if err := w.Start(ctx); err != nil {
				return err
			}
			for _, dir := range w.Dirs() {
				a.logger.Info().Str("dir", dir).Msg("Watching")
			}

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					return nil
				case err, ok := <-w.Errors():
					if ok {
						a.logger.Warn().Err(err).Msg("Watcher error")
					}
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					fmt.Fprintln(out, ev.String())
				}
			}
		},
	}
}
