package usecase

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/resmenu/internal/curation"
	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

// Outcome is the result of a user action, reported back to the presenter.
type Outcome string

const (
	OutcomeApplied         Outcome = "applied"
	OutcomeNoop            Outcome = "noop"
	OutcomeDeclined        Outcome = "declined"
	OutcomeFailed          Outcome = "failed"
	OutcomeBusy            Outcome = "busy"
	OutcomeUnknownDisplay  Outcome = "unknown_display"
	OutcomeUnavailable     Outcome = "unavailable"
	OutcomeFavoriteAdded   Outcome = "favorite_added"
	OutcomeFavoriteRemoved Outcome = "favorite_removed"
	OutcomeRejected        Outcome = "rejected"
)

// Controller orchestrates catalog snapshots, mode changes, favorites and
// previous-mode history. OS and store failures never escape it; they land
// in the last-error slot.
type Controller struct {
	catalog domain.Catalog
	backend domain.DisplayBackend
	store   domain.StateStore
	logger  *zap.Logger

	mu       sync.Mutex
	views    []domain.DisplayView
	inFlight map[domain.DisplayID]bool
	lastErr  string
}

// NewController creates a selection controller. Call Refresh before use.
func NewController(
	catalog domain.Catalog,
	backend domain.DisplayBackend,
	store domain.StateStore,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		catalog:  catalog,
		backend:  backend,
		store:    store,
		logger:   logger,
		inFlight: make(map[domain.DisplayID]bool),
	}
}

// Refresh replaces the display snapshot with a freshly enumerated one.
func (c *Controller) Refresh(ctx context.Context) {
	displays := c.catalog.ListDisplays(ctx)
	views := make([]domain.DisplayView, len(displays))
	for i, d := range displays {
		views[i] = domain.DisplayView{Display: d, Tiers: curation.Curate(d)}
	}

	c.mu.Lock()
	c.views = views
	c.mu.Unlock()
}

// Displays returns the current snapshot with tiers.
func (c *Controller) Displays() []domain.DisplayView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.views)
}

// View returns the snapshot entry for a display.
func (c *Controller) View(id domain.DisplayID) (domain.DisplayView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.views {
		if v.ID == id {
			return v, true
		}
	}
	return domain.DisplayView{}, false
}

// LastError returns the message of the last failed action, if any.
func (c *Controller) LastError() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr, c.lastErr != ""
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
}

func (c *Controller) clearError() {
	c.mu.Lock()
	c.lastErr = ""
	c.mu.Unlock()
}

// NeedsConfirmation reports whether switching to the mode requires the user
// to confirm: it is risky and the (display, mode) pair was never acknowledged.
func (c *Controller) NeedsConfirmation(id domain.DisplayID, mode domain.DisplayMode) bool {
	v, ok := c.View(id)
	if !ok {
		return false
	}
	return c.needsConfirmation(v, mode)
}

func (c *Controller) needsConfirmation(v domain.DisplayView, mode domain.DisplayMode) bool {
	if !curation.IsRisky(v.Display, v.Tiers, mode) {
		return false
	}
	acked, err := c.store.IsRiskAcknowledged(v.ID.Key(), mode.Signature())
	if err != nil {
		c.logger.Warn("failed to read risk acknowledgement",
			zap.String("display", v.ID.Key()),
			zap.String("mode", mode.Signature().Key()),
			zap.Error(err))
		return true
	}
	return !acked
}

// RequestModeChange drives one mode change: risk check, optional
// confirmation, then the OS transaction.
func (c *Controller) RequestModeChange(
	ctx context.Context,
	id domain.DisplayID,
	target domain.DisplayMode,
	confirm domain.Confirmer,
) Outcome {
	v, ok := c.View(id)
	if !ok {
		c.setError(fmt.Errorf("display %d: %w", id, domain.ErrDisplayNotFound))
		return OutcomeUnknownDisplay
	}

	if target.ID == v.Current.ID || target.Signature() == v.Current.Signature() {
		return OutcomeNoop
	}

	live, ok := liveMode(v.Display, target)
	if !ok {
		c.setError(fmt.Errorf("%s on %s: %w", target, v.Name, domain.ErrModeNotFound))
		return OutcomeFailed
	}

	if !c.begin(id) {
		c.setError(fmt.Errorf("%s: %w", v.Name, domain.ErrChangeInProgress))
		return OutcomeBusy
	}
	defer c.end(id)

	if c.needsConfirmation(v, live) {
		prompt := fmt.Sprintf("Switch %s to %s? This mode may be unreadable or unsupported.", v.Name, live)
		if confirm == nil || !confirm(prompt) {
			c.logger.Info("mode change declined",
				zap.String("display", v.Name),
				zap.String("mode", live.Signature().Key()))
			return OutcomeDeclined
		}
		if err := c.store.AcknowledgeRisk(v.ID.Key(), live.Signature()); err != nil {
			c.logger.Warn("failed to persist risk acknowledgement",
				zap.String("display", v.ID.Key()),
				zap.Error(err))
		}
	}

	if err := c.apply(id, live.ID); err != nil {
		c.logger.Warn("mode change failed",
			zap.String("display", v.Name),
			zap.String("mode", live.Signature().Key()),
			zap.Error(err))
		c.setError(fmt.Errorf("could not switch %s to %s: %w", v.Name, live, err))
		c.Refresh(ctx)
		return OutcomeFailed
	}

	if err := c.store.SetPreviousMode(v.ID.Key(), v.Current.Signature()); err != nil {
		c.logger.Warn("failed to save previous mode",
			zap.String("display", v.ID.Key()),
			zap.Error(err))
	}
	c.clearError()
	c.logger.Info("mode changed",
		zap.String("display", v.Name),
		zap.String("from", v.Current.Signature().Key()),
		zap.String("to", live.Signature().Key()))

	c.Refresh(ctx)
	return OutcomeApplied
}

// liveMode maps a requested mode onto the snapshot: the same platform
// identifier with the same signature, else any mode with that signature.
func liveMode(d domain.Display, target domain.DisplayMode) (domain.DisplayMode, bool) {
	if m, ok := d.Lookup(target.ID); ok && m.Signature() == target.Signature() {
		return m, true
	}
	sig := target.Signature()
	for _, m := range d.Modes {
		if sig.Matches(m) {
			return m, true
		}
	}
	return domain.DisplayMode{}, false
}

func (c *Controller) begin(id domain.DisplayID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[id] {
		return false
	}
	c.inFlight[id] = true
	return true
}

func (c *Controller) end(id domain.DisplayID) {
	c.mu.Lock()
	delete(c.inFlight, id)
	c.mu.Unlock()
}

// apply runs begin/configure/commit and cancels the transaction on any
// failure after it was opened.
func (c *Controller) apply(id domain.DisplayID, mode domain.ModeID) error {
	tx, err := c.backend.BeginConfiguration()
	if err != nil {
		return fmt.Errorf("failed to begin display configuration: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			tx.Cancel()
		}
	}()

	if err := tx.Configure(id, mode); err != nil {
		return fmt.Errorf("failed to configure display: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit display configuration: %w", err)
	}

	committed = true
	return nil
}

// FavoritesFor returns the display's favorites resolved against the live
// catalog. Favorites whose refresh rate drifted are rewritten to the
// resolved signature; unresolvable ones are kept in the store but skipped.
func (c *Controller) FavoritesFor(id domain.DisplayID) []domain.DisplayMode {
	v, ok := c.View(id)
	if !ok {
		return nil
	}

	stored, err := c.store.Favorites(v.ID.Key())
	if err != nil {
		c.logger.Warn("failed to read favorites", zap.String("display", v.ID.Key()), zap.Error(err))
		return nil
	}

	resolved := make([]domain.DisplayMode, 0, len(stored))
	normalized := make([]domain.StoredMode, 0, len(stored))
	seen := make(map[domain.StoredMode]bool, len(stored))
	dirty := false
	for _, s := range stored {
		m, ok := curation.Resolve(s, v.Display)
		if !ok {
			normalized = append(normalized, s)
			continue
		}
		sig := m.Signature()
		if sig != s {
			dirty = true
		}
		normalized = append(normalized, sig)
		if !seen[sig] {
			seen[sig] = true
			resolved = append(resolved, m)
		}
	}

	if dirty {
		if err := c.store.SetFavorites(v.ID.Key(), normalized); err != nil {
			c.logger.Warn("failed to normalize favorites", zap.String("display", v.ID.Key()), zap.Error(err))
		}
	}
	return resolved
}

// IsFavorite reports whether the mode's signature names a stored favorite,
// directly or after resolving drifted refresh rates.
func (c *Controller) IsFavorite(id domain.DisplayID, mode domain.DisplayMode) bool {
	favs, err := c.store.Favorites(id.Key())
	if err != nil {
		return false
	}
	if v, ok := c.View(id); ok {
		return favoriteIndex(favs, mode.Signature(), v.Display) >= 0
	}
	return slices.Contains(favs, mode.Signature())
}

// ToggleFavorite adds or removes the mode from the display's favorites.
// Adding past the cap is rejected and recorded as the last error.
func (c *Controller) ToggleFavorite(id domain.DisplayID, mode domain.DisplayMode) Outcome {
	v, ok := c.View(id)
	if !ok {
		c.setError(fmt.Errorf("display %d: %w", id, domain.ErrDisplayNotFound))
		return OutcomeUnknownDisplay
	}
	key := v.ID.Key()

	favs, err := c.store.Favorites(key)
	if err != nil {
		c.setError(fmt.Errorf("failed to read favorites: %w", err))
		return OutcomeFailed
	}

	sig := mode.Signature()
	if i := favoriteIndex(favs, sig, v.Display); i >= 0 {
		removed := favs[i]
		if err := c.store.SetFavorites(key, slices.Delete(favs, i, i+1)); err != nil {
			c.setError(fmt.Errorf("failed to save favorites: %w", err))
			return OutcomeFailed
		}
		c.logger.Info("favorite removed",
			zap.String("display", v.Name),
			zap.String("mode", sig.Key()),
			zap.String("stored", removed.Key()))
		return OutcomeFavoriteRemoved
	}

	if len(favs) >= domain.MaxFavorites {
		c.setError(fmt.Errorf("cannot add %s to favorites for %s: %w", sig, v.Name, domain.ErrFavoritesFull))
		return OutcomeRejected
	}

	if err := c.store.SetFavorites(key, append(favs, sig)); err != nil {
		c.setError(fmt.Errorf("failed to save favorites: %w", err))
		return OutcomeFailed
	}
	c.logger.Info("favorite added", zap.String("display", v.Name), zap.String("mode", sig.Key()))
	return OutcomeFavoriteAdded
}

// favoriteIndex finds the stored favorite that names sig, either exactly or
// after resolving it against the live display the way FavoritesFor does.
func favoriteIndex(favs []domain.StoredMode, sig domain.StoredMode, d domain.Display) int {
	if i := slices.Index(favs, sig); i >= 0 {
		return i
	}
	for i, s := range favs {
		if m, ok := curation.Resolve(s, d); ok && m.Signature() == sig {
			return i
		}
	}
	return -1
}

// PreviousFor resolves the stored previous mode. It is unavailable when
// nothing is stored, nothing live matches, or it equals the current mode.
func (c *Controller) PreviousFor(id domain.DisplayID) (domain.DisplayMode, bool) {
	v, ok := c.View(id)
	if !ok {
		return domain.DisplayMode{}, false
	}

	prev, err := c.store.PreviousMode(v.ID.Key())
	if err != nil {
		c.logger.Warn("failed to read previous mode", zap.String("display", v.ID.Key()), zap.Error(err))
		return domain.DisplayMode{}, false
	}
	if prev == nil {
		return domain.DisplayMode{}, false
	}

	m, ok := curation.Resolve(*prev, v.Display)
	if !ok {
		return domain.DisplayMode{}, false
	}
	if sig := m.Signature(); sig != *prev {
		if err := c.store.SetPreviousMode(v.ID.Key(), sig); err != nil {
			c.logger.Warn("failed to normalize previous mode", zap.String("display", v.ID.Key()), zap.Error(err))
		}
	}
	if m.ID == v.Current.ID || m.Signature() == v.Current.Signature() {
		return domain.DisplayMode{}, false
	}
	return m, true
}

// TogglePreviousMode switches back to the mode in use before the last
// successful change.
func (c *Controller) TogglePreviousMode(ctx context.Context, id domain.DisplayID, confirm domain.Confirmer) Outcome {
	if _, ok := c.View(id); !ok {
		c.setError(fmt.Errorf("display %d: %w", id, domain.ErrDisplayNotFound))
		return OutcomeUnknownDisplay
	}
	target, ok := c.PreviousFor(id)
	if !ok {
		return OutcomeUnavailable
	}
	return c.RequestModeChange(ctx, id, target, confirm)
}
