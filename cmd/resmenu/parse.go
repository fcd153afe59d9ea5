package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

// resolveDisplay picks a display by ID, then by 1-based index, then by
// case-insensitive name prefix. A prefix matching several displays is an
// error.
func resolveDisplay(views []domain.DisplayView, arg string) (domain.DisplayView, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return domain.DisplayView{}, fmt.Errorf("display selector is empty")
	}

	if n, err := strconv.ParseUint(arg, 10, 32); err == nil {
		for _, v := range views {
			if uint64(v.ID) == n {
				return v, nil
			}
		}
		if n >= 1 && n <= uint64(len(views)) {
			return views[n-1], nil
		}
		return domain.DisplayView{}, fmt.Errorf("display %q: %w", arg, domain.ErrDisplayNotFound)
	}

	prefix := strings.ToLower(arg)
	var matches []domain.DisplayView
	for _, v := range views {
		if strings.HasPrefix(strings.ToLower(v.Name), prefix) {
			matches = append(matches, v)
		}
	}
	switch len(matches) {
	case 0:
		return domain.DisplayView{}, fmt.Errorf("display %q: %w", arg, domain.ErrDisplayNotFound)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return domain.DisplayView{}, fmt.Errorf("display %q is ambiguous: %s", arg, strings.Join(names, ", "))
	}
}

// maxRefreshHz bounds user-supplied refresh rates well above any real panel.
const maxRefreshHz = 1000

// parseMode parses WxH[@Hz][h|hidpi], e.g. "2560x1440", "1920x1080@59.94",
// "1512x982@120Hz h". A missing refresh rate is returned as zero.
func parseMode(s string) (domain.StoredMode, error) {
	var mode domain.StoredMode
	in := strings.ToLower(strings.TrimSpace(s))

	switch {
	case strings.HasSuffix(in, "hidpi"):
		mode.HiDPI = true
		in = strings.TrimSpace(strings.TrimSuffix(in, "hidpi"))
	case strings.HasSuffix(in, "h"):
		mode.HiDPI = true
		in = strings.TrimSpace(strings.TrimSuffix(in, "h"))
	}

	res, rate, hasRate := strings.Cut(in, "@")
	w, h, ok := strings.Cut(strings.TrimSpace(res), "x")
	if !ok {
		return domain.StoredMode{}, fmt.Errorf("invalid mode %q: expected WxH[@Hz][h]", s)
	}

	var err error
	if mode.Width, err = parseDimension(w); err != nil {
		return domain.StoredMode{}, fmt.Errorf("invalid mode %q: %w", s, err)
	}
	if mode.Height, err = parseDimension(h); err != nil {
		return domain.StoredMode{}, fmt.Errorf("invalid mode %q: %w", s, err)
	}

	if hasRate {
		rate = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rate), "hz"))
		hz, err := strconv.ParseFloat(rate, 64)
		if err != nil || math.IsNaN(hz) || hz <= 0 || hz > maxRefreshHz {
			return domain.StoredMode{}, fmt.Errorf("invalid refresh rate %q", rate)
		}
		mode.RefreshMilliHz = int(math.Round(hz * 1000))
	}
	return mode, nil
}

func parseDimension(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid dimension %q", s)
	}
	return n, nil
}

// promptConfirmer asks y/N questions on out and reads answers from in.
// Anything other than y or yes declines, including EOF.
func promptConfirmer(in io.Reader, out io.Writer) domain.Confirmer {
	reader := bufio.NewReader(in)
	return func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		line, _ := reader.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}

func alwaysConfirm(string) bool { return true }
