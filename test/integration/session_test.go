//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
	"github.com/eliteGoblin/focusd/resmenu/internal/infra"
	"github.com/eliteGoblin/focusd/resmenu/internal/usecase"
	"github.com/eliteGoblin/focusd/resmenu/test/fixtures"
)

const (
	builtin  = domain.DisplayID(fixtures.BuiltinID)
	external = domain.DisplayID(fixtures.ExternalID)
)

// session is one run of the app: a fresh backend and store over the same
// fixture file and data directory.
type session struct {
	backend *infra.SimBackend
	store   domain.StateStore
	ctrl    *usecase.Controller
}

func (s *session) close() {
	Expect(s.store.Close()).To(Succeed())
}

func (s *session) mode(id domain.DisplayID, modeID domain.ModeID) domain.DisplayMode {
	v, ok := s.ctrl.View(id)
	Expect(ok).To(BeTrue(), "display %d not connected", id)
	m, ok := v.Lookup(modeID)
	Expect(ok).To(BeTrue(), "mode %d not in catalog", modeID)
	return m
}

func (s *session) current(id domain.DisplayID) domain.DisplayMode {
	v, ok := s.ctrl.View(id)
	Expect(ok).To(BeTrue())
	return v.Current
}

type storeOpener func(dataDir string) (domain.StateStore, error)

func openFileStore(dataDir string) (domain.StateStore, error) {
	return infra.NewFileStateStore(dataDir)
}

func openEncryptedStore(dataDir string) (domain.StateStore, error) {
	return infra.NewEncryptedStateStoreWithKeyProvider(dataDir, infra.NewStateKeyProvider(dataDir))
}

var _ = Describe("Controller across restarts", func() {
	describeRestarts("with the file store", openFileStore)
	describeRestarts("with the encrypted store", openEncryptedStore)
})

func describeRestarts(name string, open storeOpener) {
	Describe(name, func() {
		var (
			tmpDir  string
			dataDir string
			desk    *fixtures.DeskSetup
			ctx     context.Context
		)

		start := func() *session {
			backend, err := infra.NewSimBackendFromFile(desk.Path())
			Expect(err).NotTo(HaveOccurred())

			store, err := open(dataDir)
			Expect(err).NotTo(HaveOccurred())

			logger := zap.NewNop()
			ctrl := usecase.NewController(usecase.NewCatalog(backend, logger), backend, store, logger)
			ctrl.Refresh(ctx)
			return &session{backend: backend, store: store, ctrl: ctrl}
		}

		BeforeEach(func() {
			var err error
			tmpDir, err = os.MkdirTemp("", "resmenu-integration-*")
			Expect(err).NotTo(HaveOccurred())

			dataDir = filepath.Join(tmpDir, "data")
			desk = fixtures.NewDeskSetup(tmpDir)
			Expect(desk.Create()).To(Succeed())
			Expect(desk.Exists()).To(BeTrue())

			ctx = context.Background()
		})

		AfterEach(func() {
			os.RemoveAll(tmpDir)
		})

		Describe("catalog", func() {
			It("should list both displays sorted by name", func() {
				s := start()
				defer s.close()

				views := s.ctrl.Displays()
				Expect(views).To(HaveLen(2))
				Expect(views[0].ID).To(Equal(builtin))
				Expect(views[1].ID).To(Equal(external))
			})

			It("should hide modes unusable for the desktop", func() {
				s := start()
				defer s.close()

				v, ok := s.ctrl.View(external)
				Expect(ok).To(BeTrue())
				_, found := v.Lookup(210)
				Expect(found).To(BeFalse())
			})

			It("should recommend the HiDPI modes of the built-in panel", func() {
				s := start()
				defer s.close()

				v, _ := s.ctrl.View(builtin)
				Expect(v.Tiers.Recommended).To(HaveLen(6))
				for _, m := range v.Tiers.Recommended {
					Expect(m.HiDPI).To(BeTrue())
				}
				Expect(v.Tiers.Legacy).To(ContainElement(HaveField("Width", 800)))
			})
		})

		Describe("previous mode", func() {
			It("should switch back after a restart", func() {
				s := start()
				Expect(s.ctrl.RequestModeChange(ctx, external, s.mode(external, 203), nil)).
					To(Equal(usecase.OutcomeApplied))
				s.close()

				s = start()
				defer s.close()
				Expect(s.current(external).ID).To(Equal(domain.ModeID(203)))

				prev, ok := s.ctrl.PreviousFor(external)
				Expect(ok).To(BeTrue())
				Expect(prev.ID).To(Equal(domain.ModeID(204)))

				Expect(s.ctrl.TogglePreviousMode(ctx, external, nil)).To(Equal(usecase.OutcomeApplied))
				Expect(s.current(external).ID).To(Equal(domain.ModeID(204)))

				prev, ok = s.ctrl.PreviousFor(external)
				Expect(ok).To(BeTrue())
				Expect(prev.ID).To(Equal(domain.ModeID(203)))
			})

			It("should keep history per display", func() {
				s := start()
				defer s.close()

				Expect(s.ctrl.RequestModeChange(ctx, builtin, s.mode(builtin, 102), nil)).
					To(Equal(usecase.OutcomeApplied))

				_, ok := s.ctrl.PreviousFor(external)
				Expect(ok).To(BeFalse())
				Expect(s.ctrl.TogglePreviousMode(ctx, external, nil)).To(Equal(usecase.OutcomeUnavailable))
			})
		})

		Describe("favorites", func() {
			It("should survive a restart in insertion order", func() {
				s := start()
				for _, id := range []domain.ModeID{203, 201, 206} {
					Expect(s.ctrl.ToggleFavorite(external, s.mode(external, id))).
						To(Equal(usecase.OutcomeFavoriteAdded))
				}
				s.close()

				s = start()
				defer s.close()
				favs := s.ctrl.FavoritesFor(external)
				Expect(favs).To(HaveLen(3))
				Expect(favs[0].ID).To(Equal(domain.ModeID(203)))
				Expect(favs[1].ID).To(Equal(domain.ModeID(201)))
				Expect(favs[2].ID).To(Equal(domain.ModeID(206)))
				Expect(s.ctrl.FavoritesFor(builtin)).To(BeEmpty())
			})

			It("should reject a fifth favorite", func() {
				s := start()
				defer s.close()

				for _, id := range []domain.ModeID{201, 203, 204, 206} {
					Expect(s.ctrl.ToggleFavorite(external, s.mode(external, id))).
						To(Equal(usecase.OutcomeFavoriteAdded))
				}
				Expect(s.ctrl.ToggleFavorite(external, s.mode(external, 208))).
					To(Equal(usecase.OutcomeRejected))
				Expect(s.ctrl.FavoritesFor(external)).To(HaveLen(domain.MaxFavorites))
			})

			It("should follow a refresh rate that drifted after reconnect", func() {
				s := start()
				Expect(s.ctrl.ToggleFavorite(external, s.mode(external, 202))).
					To(Equal(usecase.OutcomeFavoriteAdded))
				s.close()

				s = start()
				defer s.close()

				// the monitor comes back without its 59.951Hz timing
				fx, err := infra.LoadSimFixture(desk.Path())
				Expect(err).NotTo(HaveOccurred())
				var dell infra.SimDisplay
				for _, d := range fx.Displays {
					if d.ID == fixtures.ExternalID {
						dell = d
					}
				}
				kept := dell.Modes[:0]
				for _, m := range dell.Modes {
					if m.ID != 202 {
						kept = append(kept, m)
					}
				}
				dell.Modes = kept
				s.backend.Disconnect(external)
				s.backend.Connect(dell)
				s.ctrl.Refresh(ctx)

				favs := s.ctrl.FavoritesFor(external)
				Expect(favs).To(HaveLen(1))
				Expect(favs[0].ID).To(Equal(domain.ModeID(203)))

				stored, err := s.store.Favorites(external.Key())
				Expect(err).NotTo(HaveOccurred())
				Expect(stored).To(Equal([]domain.StoredMode{{Width: 2560, Height: 1440, RefreshMilliHz: 60000}}))
			})
		})

		Describe("risky modes", func() {
			It("should ask once per display and remember the answer", func() {
				s := start()
				lowRes := s.mode(builtin, 108)
				Expect(s.ctrl.NeedsConfirmation(builtin, lowRes)).To(BeTrue())

				prompts := 0
				accept := func(string) bool { prompts++; return true }
				Expect(s.ctrl.RequestModeChange(ctx, builtin, lowRes, accept)).
					To(Equal(usecase.OutcomeApplied))
				Expect(prompts).To(Equal(1))
				Expect(s.ctrl.TogglePreviousMode(ctx, builtin, accept)).To(Equal(usecase.OutcomeApplied))
				s.close()

				s = start()
				defer s.close()
				lowRes = s.mode(builtin, 108)
				Expect(s.ctrl.NeedsConfirmation(builtin, lowRes)).To(BeFalse())
				Expect(s.ctrl.RequestModeChange(ctx, builtin, lowRes, accept)).
					To(Equal(usecase.OutcomeApplied))
				Expect(prompts).To(Equal(1))

				// acknowledgement does not carry over to other displays
				Expect(s.ctrl.NeedsConfirmation(external, s.mode(external, 208))).To(BeTrue())
			})

			It("should leave the display untouched when declined", func() {
				s := start()
				defer s.close()

				decline := func(string) bool { return false }
				Expect(s.ctrl.RequestModeChange(ctx, external, s.mode(external, 209), decline)).
					To(Equal(usecase.OutcomeDeclined))
				Expect(s.current(external).ID).To(Equal(domain.ModeID(204)))
				Expect(s.backend.Commits()).To(BeZero())
			})
		})

		Describe("hot-plug", func() {
			It("should report unknown displays after disconnect", func() {
				s := start()
				defer s.close()

				target := s.mode(external, 203)
				s.backend.Disconnect(external)
				s.ctrl.Refresh(ctx)

				Expect(s.ctrl.Displays()).To(HaveLen(1))
				Expect(s.ctrl.RequestModeChange(ctx, external, target, nil)).
					To(Equal(usecase.OutcomeUnknownDisplay))
				msg, ok := s.ctrl.LastError()
				Expect(ok).To(BeTrue())
				Expect(msg).To(ContainSubstring("display"))
			})
		})
	})
}
