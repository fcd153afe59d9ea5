//go:build darwin && cgo

package infra

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>

static CFArrayRef resmenu_copy_modes(CGDirectDisplayID display, int includeLowRes) {
	if (!includeLowRes) {
		return CGDisplayCopyAllDisplayModes(display, NULL);
	}
	const void *keys[] = { kCGDisplayShowDuplicateLowResolutionModes };
	const void *values[] = { kCFBooleanTrue };
	CFDictionaryRef opts = CFDictionaryCreate(NULL, keys, values, 1,
		&kCFTypeDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
	CFArrayRef modes = CGDisplayCopyAllDisplayModes(display, opts);
	CFRelease(opts);
	return modes;
}

static CFIndex resmenu_count(CFArrayRef modes) {
	return modes ? CFArrayGetCount(modes) : 0;
}

static CGDisplayModeRef resmenu_mode_at(CFArrayRef modes, CFIndex i) {
	return (CGDisplayModeRef)CFArrayGetValueAtIndex(modes, i);
}

static void resmenu_release_array(CFArrayRef modes) {
	if (modes) CFRelease(modes);
}

static CGError resmenu_configure(CGDisplayConfigRef config, CGDirectDisplayID display, CGDisplayModeRef mode) {
	return CGConfigureDisplayWithDisplayMode(config, display, mode, NULL);
}
*/
import "C"

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

const maxDisplays = 32

// cgError is a non-success CGError code.
type cgError struct {
	op   string
	code C.CGError
}

func (e *cgError) Error() string {
	return fmt.Sprintf("%s: CGError %d", e.op, int(e.code))
}

func checkCG(op string, code C.CGError) error {
	if code == C.kCGErrorSuccess {
		return nil
	}
	return &cgError{op: op, code: code}
}

// modeSnapshot holds retained mode references for one display. Identifiers
// are only meaningful within the snapshot that produced them.
type modeSnapshot struct {
	refs  map[domain.ModeID]C.CGDisplayModeRef
	modes []domain.RawMode
}

func (s *modeSnapshot) release() {
	for _, ref := range s.refs {
		C.CGDisplayModeRelease(ref)
	}
	s.refs = nil
}

// CoreGraphicsBackend implements domain.DisplayBackend with CoreGraphics.
type CoreGraphicsBackend struct {
	mu        sync.Mutex
	snapshots map[domain.DisplayID]*modeSnapshot
	logger    *zap.Logger
}

// NewNativeBackend returns the CoreGraphics display backend.
func NewNativeBackend(logger *zap.Logger) (domain.DisplayBackend, error) {
	return &CoreGraphicsBackend{
		snapshots: make(map[domain.DisplayID]*modeSnapshot),
		logger:    logger,
	}, nil
}

// ActiveDisplays lists the displays currently driven by the OS.
func (b *CoreGraphicsBackend) ActiveDisplays() ([]domain.DisplayInfo, error) {
	var ids [maxDisplays]C.CGDirectDisplayID
	var count C.uint32_t
	if err := checkCG("CGGetActiveDisplayList", C.CGGetActiveDisplayList(maxDisplays, &ids[0], &count)); err != nil {
		return nil, err
	}

	infos := make([]domain.DisplayInfo, 0, int(count))
	for i := 0; i < int(count); i++ {
		id := ids[i]
		infos = append(infos, domain.DisplayInfo{
			ID:   domain.DisplayID(id),
			Name: displayName(id),
		})
	}
	return infos, nil
}

// displayName derives a label from CoreGraphics metadata. Localized screen
// names live in AppKit, which this backend does not link.
func displayName(id C.CGDirectDisplayID) string {
	if C.CGDisplayIsBuiltin(id) != 0 {
		return "Built-in Display"
	}
	return fmt.Sprintf("Display %04X:%04X",
		uint32(C.CGDisplayVendorNumber(id)), uint32(C.CGDisplayModelNumber(id)))
}

// AllModes enumerates every mode and replaces the display's snapshot,
// releasing the references of the previous one.
func (b *CoreGraphicsBackend) AllModes(id domain.DisplayID, includeLowResolutionDuplicates bool) ([]domain.RawMode, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.enumerate(id, includeLowResolutionDuplicates)
	if err != nil {
		return nil, err
	}
	if old := b.snapshots[id]; old != nil {
		old.release()
	}
	b.snapshots[id] = snap
	return append([]domain.RawMode(nil), snap.modes...), nil
}

func (b *CoreGraphicsBackend) enumerate(id domain.DisplayID, includeLowRes bool) (*modeSnapshot, error) {
	flag := C.int(0)
	if includeLowRes {
		flag = 1
	}
	arr := C.resmenu_copy_modes(C.CGDirectDisplayID(id), flag)
	if arr == 0 {
		return nil, fmt.Errorf("failed to copy display modes for display %d", id)
	}
	defer C.resmenu_release_array(arr)

	n := int(C.resmenu_count(arr))
	snap := &modeSnapshot{
		refs:  make(map[domain.ModeID]C.CGDisplayModeRef, n),
		modes: make([]domain.RawMode, 0, n),
	}
	for i := 0; i < n; i++ {
		ref := C.resmenu_mode_at(arr, C.CFIndex(i))
		if ref == nil {
			continue
		}
		// IODisplayModeID repeats across scaled duplicates, so the position
		// in the list disambiguates.
		modeID := domain.ModeID(int64(C.CGDisplayModeGetIODisplayModeID(ref))<<16 | int64(i&0xffff))
		C.CGDisplayModeRetain(ref)
		snap.refs[modeID] = ref
		snap.modes = append(snap.modes, rawMode(modeID, ref))
	}
	return snap, nil
}

func rawMode(id domain.ModeID, ref C.CGDisplayModeRef) domain.RawMode {
	return domain.RawMode{
		ID:          id,
		Width:       int(C.CGDisplayModeGetWidth(ref)),
		Height:      int(C.CGDisplayModeGetHeight(ref)),
		PixelWidth:  int(C.CGDisplayModeGetPixelWidth(ref)),
		PixelHeight: int(C.CGDisplayModeGetPixelHeight(ref)),
		RefreshHz:   float64(C.CGDisplayModeGetRefreshRate(ref)),
	}
}

// CurrentMode returns the live mode, carrying the identifier of the matching
// snapshot entry so equality checks against the catalog work.
func (b *CoreGraphicsBackend) CurrentMode(id domain.DisplayID) (domain.RawMode, error) {
	ref := C.CGDisplayCopyDisplayMode(C.CGDirectDisplayID(id))
	if ref == nil {
		return domain.RawMode{}, fmt.Errorf("failed to copy current mode for display %d", id)
	}
	defer C.CGDisplayModeRelease(ref)

	ioID := int64(C.CGDisplayModeGetIODisplayModeID(ref))
	current := rawMode(domain.ModeID(ioID<<16|0xffff), ref)

	b.mu.Lock()
	defer b.mu.Unlock()

	snap := b.snapshots[id]
	if snap == nil {
		var err error
		if snap, err = b.enumerate(id, true); err != nil {
			return current, nil
		}
		b.snapshots[id] = snap
	}
	for _, m := range snap.modes {
		if int64(m.ID)>>16 != ioID {
			continue
		}
		if m.Width == current.Width && m.Height == current.Height &&
			m.PixelWidth == current.PixelWidth && m.PixelHeight == current.PixelHeight &&
			m.RefreshHz == current.RefreshHz {
			return m, nil
		}
	}
	return current, nil
}

// IsUsableForDesktop reports CGDisplayModeIsUsableForDesktopGUI for a
// snapshot mode.
func (b *CoreGraphicsBackend) IsUsableForDesktop(id domain.DisplayID, mode domain.RawMode) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := b.snapshots[id]
	if snap == nil {
		return false
	}
	ref, ok := snap.refs[mode.ID]
	if !ok {
		return false
	}
	return bool(C.CGDisplayModeIsUsableForDesktopGUI(ref))
}

// IsBuiltin reports whether the display is the built-in panel.
func (b *CoreGraphicsBackend) IsBuiltin(id domain.DisplayID) bool {
	return C.CGDisplayIsBuiltin(C.CGDirectDisplayID(id)) != 0
}

// BeginConfiguration opens a CoreGraphics configuration transaction.
func (b *CoreGraphicsBackend) BeginConfiguration() (domain.ConfigTransaction, error) {
	var config C.CGDisplayConfigRef
	if err := checkCG("CGBeginDisplayConfiguration", C.CGBeginDisplayConfiguration(&config)); err != nil {
		return nil, err
	}
	return &cgTransaction{backend: b, config: config}, nil
}

type cgTransaction struct {
	backend *CoreGraphicsBackend
	config  C.CGDisplayConfigRef
	done    bool
}

func (t *cgTransaction) Configure(id domain.DisplayID, mode domain.ModeID) error {
	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := b.snapshots[id]
	if snap == nil {
		return fmt.Errorf("display %d: %w", id, domain.ErrDisplayNotFound)
	}
	ref, ok := snap.refs[mode]
	if !ok {
		return fmt.Errorf("display %d mode %d: %w", id, mode, domain.ErrModeNotFound)
	}
	return checkCG("CGConfigureDisplayWithDisplayMode",
		C.resmenu_configure(t.config, C.CGDirectDisplayID(id), ref))
}

func (t *cgTransaction) Commit() error {
	if t.done {
		return fmt.Errorf("display configuration already completed")
	}
	err := checkCG("CGCompleteDisplayConfiguration",
		C.CGCompleteDisplayConfiguration(t.config, C.kCGConfigurePermanently))
	if err == nil {
		t.done = true
		b := t.backend
		b.logger.Debug("display configuration committed")
	}
	return err
}

func (t *cgTransaction) Cancel() {
	if t.done {
		return
	}
	t.done = true
	if err := checkCG("CGCancelDisplayConfiguration", C.CGCancelDisplayConfiguration(t.config)); err != nil {
		t.backend.logger.Warn("failed to cancel display configuration", zap.Error(err))
	}
}

// Ensure CoreGraphicsBackend implements domain.DisplayBackend.
var _ domain.DisplayBackend = (*CoreGraphicsBackend)(nil)
