package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/resmenu/internal/config"
	"github.com/eliteGoblin/focusd/resmenu/internal/curation"
	"github.com/eliteGoblin/focusd/resmenu/internal/daemon"
	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
	"github.com/eliteGoblin/focusd/resmenu/internal/infra"
	"github.com/eliteGoblin/focusd/resmenu/internal/ui"
	"github.com/eliteGoblin/focusd/resmenu/internal/usecase"
)

const processName = "resmenu"

func runList(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if jsonOutput {
		return writeListJSON(cmd.OutOrStdout(), a.ctrl)
	}
	writeList(cmd.OutOrStdout(), a.ctrl)
	return nil
}

func runSet(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	return setMode(cmd.Context(), cmd.OutOrStdout(), a.ctrl, args[0], args[1], confirmer(cmd))
}

func runFavorite(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	return toggleFavorite(cmd.OutOrStdout(), a.ctrl, args[0], args[1])
}

func runFavorites(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := resolveDisplay(a.ctrl.Displays(), args[0])
	if err != nil {
		return err
	}
	favorites := a.ctrl.FavoritesFor(v.ID)
	out := cmd.OutOrStdout()
	if len(favorites) == 0 {
		fmt.Fprintf(out, "No favorites for %s\n", v.Name)
		return nil
	}
	for i, m := range favorites {
		fmt.Fprintf(out, "%d. %s\n", i+1, m)
	}
	return nil
}

func runPrevious(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	return previousMode(cmd.Context(), cmd.OutOrStdout(), a.ctrl, args[0], confirmer(cmd))
}

func runMenu(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	warnOtherInstances(cmd.ErrOrStderr(), a.logger)

	updates := make(chan tea.Msg, 1)
	watcher := daemon.NewWatcher(
		daemon.WatcherConfig{PollInterval: a.cfg.WatchInterval},
		a.ctrl,
		func([]domain.DisplayView) {
			select {
			case updates <- ui.DisplaysChangedMsg{}:
			default:
			}
		},
		a.logger,
	)
	go func() { _ = watcher.Run(ctx) }()

	return ui.Run(ctx, ui.Options{Context: ctx, Controller: a.ctrl}, updates)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	warnOtherInstances(cmd.ErrOrStderr(), a.logger)

	out := cmd.OutOrStdout()
	watcher := daemon.NewWatcher(
		daemon.WatcherConfig{PollInterval: a.cfg.WatchInterval},
		a.ctrl,
		func(views []domain.DisplayView) { writeWatchLine(out, views) },
		a.logger,
	)

	fmt.Fprintf(out, "Watching displays every %s (Ctrl+C to stop)\n", a.cfg.WatchInterval)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.ResolvePath(configPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !forceWrite {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	if backendFlag != "" {
		cfg.DisplayBackend = backendFlag
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

// confirmer returns the y/N prompt, or an automatic yes with --yes.
func confirmer(cmd *cobra.Command) domain.Confirmer {
	if assumeYes {
		return alwaysConfirm
	}
	return promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
}

func warnOtherInstances(w io.Writer, logger *zap.Logger) {
	pids, err := infra.OtherInstances(infra.NewProcessManager(), processName)
	if err != nil {
		logger.Debug("instance check failed", zap.Error(err))
		return
	}
	if len(pids) > 0 {
		logger.Warn("another resmenu instance is running", zap.Ints("pids", pids))
		fmt.Fprintf(w, "Warning: another resmenu instance is running (pid %v); favorites may be overwritten.\n", pids)
	}
}

// setMode resolves the display and mode arguments and requests the change.
func setMode(ctx context.Context, out io.Writer, ctrl *usecase.Controller, displayArg, modeArg string, confirm domain.Confirmer) error {
	v, err := resolveDisplay(ctrl.Displays(), displayArg)
	if err != nil {
		return err
	}
	mode, err := lookupMode(v, modeArg)
	if err != nil {
		return err
	}
	outcome := ctrl.RequestModeChange(ctx, v.ID, mode, confirm)
	return reportOutcome(out, ctrl, v, mode, outcome)
}

func previousMode(ctx context.Context, out io.Writer, ctrl *usecase.Controller, displayArg string, confirm domain.Confirmer) error {
	v, err := resolveDisplay(ctrl.Displays(), displayArg)
	if err != nil {
		return err
	}
	prev, _ := ctrl.PreviousFor(v.ID)
	outcome := ctrl.TogglePreviousMode(ctx, v.ID, confirm)
	return reportOutcome(out, ctrl, v, prev, outcome)
}

func toggleFavorite(out io.Writer, ctrl *usecase.Controller, displayArg, modeArg string) error {
	v, err := resolveDisplay(ctrl.Displays(), displayArg)
	if err != nil {
		return err
	}
	mode, err := lookupMode(v, modeArg)
	if err != nil {
		return err
	}
	return reportOutcome(out, ctrl, v, mode, ctrl.ToggleFavorite(v.ID, mode))
}

// lookupMode parses modeArg and finds the matching live mode on v.
func lookupMode(v domain.DisplayView, modeArg string) (domain.DisplayMode, error) {
	stored, err := parseMode(modeArg)
	if err != nil {
		return domain.DisplayMode{}, err
	}
	mode, ok := curation.Resolve(stored, v.Display)
	if !ok {
		return domain.DisplayMode{}, fmt.Errorf("%s on %s: %w", modeArg, v.Name, domain.ErrModeNotFound)
	}
	return mode, nil
}

// reportOutcome prints a successful outcome or turns a failed one into an
// error carrying the controller's last error.
func reportOutcome(out io.Writer, ctrl *usecase.Controller, v domain.DisplayView, mode domain.DisplayMode, outcome usecase.Outcome) error {
	switch outcome {
	case usecase.OutcomeApplied:
		fmt.Fprintf(out, "Switched %s to %s\n", v.Name, mode)
	case usecase.OutcomeNoop:
		fmt.Fprintf(out, "%s is already using %s\n", v.Name, mode)
	case usecase.OutcomeDeclined:
		fmt.Fprintln(out, "Cancelled")
	case usecase.OutcomeFavoriteAdded:
		fmt.Fprintf(out, "Added %s to favorites for %s\n", mode, v.Name)
	case usecase.OutcomeFavoriteRemoved:
		fmt.Fprintf(out, "Removed %s from favorites for %s\n", mode, v.Name)
	case usecase.OutcomeUnavailable:
		return fmt.Errorf("no previous mode recorded for %s", v.Name)
	case usecase.OutcomeRejected:
		return fmt.Errorf("%s: %w", v.Name, domain.ErrFavoritesFull)
	default:
		if msg, ok := ctrl.LastError(); ok {
			return errors.New(msg)
		}
		return fmt.Errorf("%s: %s", v.Name, outcome)
	}
	return nil
}

func writeList(out io.Writer, ctrl *usecase.Controller) {
	views := ctrl.Displays()
	if len(views) == 0 {
		fmt.Fprintln(out, "No active displays.")
		return
	}

	for i, v := range views {
		kind := "external"
		if v.Builtin {
			kind = "built-in"
		}
		fmt.Fprintf(out, "\n[%d] %s (id %d, %s)\n", i+1, v.Name, v.ID, kind)
		fmt.Fprintf(out, "  Current: %s\n", v.Current)
		if v.Tiers.HasNative {
			fmt.Fprintf(out, "  Native:  %s\n", v.Tiers.Native)
		}

		writeModes(out, "Favorites", v, ctrl, ctrl.FavoritesFor(v.ID))
		if prev, ok := ctrl.PreviousFor(v.ID); ok {
			writeModes(out, "Previous", v, ctrl, []domain.DisplayMode{prev})
		}
		writeModes(out, "Recommended", v, ctrl, v.Tiers.Recommended)
		writeModes(out, "More", v, ctrl, v.Tiers.More)
		writeModes(out, "Legacy", v, ctrl, v.Tiers.Legacy)
	}

	if msg, ok := ctrl.LastError(); ok {
		fmt.Fprintf(out, "\nLast error: %s\n", msg)
	}
}

func writeModes(out io.Writer, title string, v domain.DisplayView, ctrl *usecase.Controller, modes []domain.DisplayMode) {
	if len(modes) == 0 {
		return
	}
	fmt.Fprintf(out, "  %s:\n", title)
	for _, m := range modes {
		marker := " "
		if m.ID == v.Current.ID {
			marker = "*"
		}
		var flags []string
		if ctrl.IsFavorite(v.ID, m) {
			flags = append(flags, "favorite")
		}
		if ctrl.NeedsConfirmation(v.ID, m) {
			flags = append(flags, "needs confirmation")
		}
		line := fmt.Sprintf("   %s %s", marker, m)
		if len(flags) > 0 {
			line += " (" + strings.Join(flags, ", ") + ")"
		}
		fmt.Fprintln(out, line)
	}
}

type modeJSON struct {
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	PixelWidth     int    `json:"pixel_width"`
	PixelHeight    int    `json:"pixel_height"`
	RefreshMilliHz int    `json:"refresh_mhz"`
	HiDPI          bool   `json:"hidpi"`
	Label          string `json:"label"`
	Favorite       bool   `json:"favorite,omitempty"`
	Risky          bool   `json:"risky,omitempty"`
}

type displayJSON struct {
	Index       int        `json:"index"`
	ID          uint32     `json:"id"`
	Name        string     `json:"name"`
	Builtin     bool       `json:"builtin"`
	Current     modeJSON   `json:"current"`
	Native      *modeJSON  `json:"native,omitempty"`
	Favorites   []modeJSON `json:"favorites"`
	Previous    *modeJSON  `json:"previous,omitempty"`
	Recommended []modeJSON `json:"recommended"`
	More        []modeJSON `json:"more"`
	Legacy      []modeJSON `json:"legacy"`
}

func writeListJSON(out io.Writer, ctrl *usecase.Controller) error {
	views := ctrl.Displays()
	displays := make([]displayJSON, 0, len(views))
	for i, v := range views {
		toJSON := func(m domain.DisplayMode) modeJSON {
			return modeJSON{
				Width:          m.Width,
				Height:         m.Height,
				PixelWidth:     m.PixelWidth,
				PixelHeight:    m.PixelHeight,
				RefreshMilliHz: m.RefreshMilliHz,
				HiDPI:          m.HiDPI,
				Label:          m.String(),
				Favorite:       ctrl.IsFavorite(v.ID, m),
				Risky:          ctrl.NeedsConfirmation(v.ID, m),
			}
		}
		list := func(modes []domain.DisplayMode) []modeJSON {
			res := make([]modeJSON, 0, len(modes))
			for _, m := range modes {
				res = append(res, toJSON(m))
			}
			return res
		}

		d := displayJSON{
			Index:       i + 1,
			ID:          uint32(v.ID),
			Name:        v.Name,
			Builtin:     v.Builtin,
			Current:     toJSON(v.Current),
			Favorites:   list(ctrl.FavoritesFor(v.ID)),
			Recommended: list(v.Tiers.Recommended),
			More:        list(v.Tiers.More),
			Legacy:      list(v.Tiers.Legacy),
		}
		if v.Tiers.HasNative {
			native := toJSON(v.Tiers.Native)
			d.Native = &native
		}
		if prev, ok := ctrl.PreviousFor(v.ID); ok {
			p := toJSON(prev)
			d.Previous = &p
		}
		displays = append(displays, d)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(displays)
}

func writeWatchLine(out io.Writer, views []domain.DisplayView) {
	if len(views) == 0 {
		fmt.Fprintln(out, "no active displays")
		return
	}
	parts := make([]string, 0, len(views))
	for _, v := range views {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Name, v.Current))
	}
	fmt.Fprintln(out, strings.Join(parts, " | "))
}
