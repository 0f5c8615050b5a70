package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkEnergySpike  BookmarkType = "energy_spike"
	BookmarkBacklogDrop  BookmarkType = "backlog_drop"
	BookmarkDyeDepleted  BookmarkType = "dye_depleted"
	BookmarkSettledFlow  BookmarkType = "settled_flow"
	BookmarkDivergenceUp BookmarkType = "divergence_up"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Frame       int64        `csv:"frame"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"frame", b.Frame,
		"description", b.Description,
	)
}

// BookmarkDetector flags notable moments in a run from window statistics.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	lastDropped         uint64  // cumulative drop count at the previous window
	recentDyePeak       float64 // peak dye mass in recent history
	settledWindowsCount int     // consecutive windows with steady kinetic energy
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for settled flow detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkEnergySpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkDivergence(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkDyeDepleted(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkSettled(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	if b := bd.checkBacklogDrop(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)

	if stats.DyeMass > bd.recentDyePeak {
		bd.recentDyePeak = stats.DyeMass
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// checkEnergySpike flags kinetic energy above 4x the rolling average,
// the usual first sign of an unstable step size.
func (bd *BookmarkDetector) checkEnergySpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.KineticEnergy
	}
	avg := total / float64(len(history))
	if avg <= 0 {
		return nil
	}

	if stats.KineticEnergy > avg*4 {
		return &Bookmark{
			Type:        BookmarkEnergySpike,
			Frame:       stats.WindowEndFrame,
			Description: fmt.Sprintf("Kinetic energy %.3g is %.1fx average (%.3g)", stats.KineticEnergy, stats.KineticEnergy/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkDivergence(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.DivergenceL1
	}
	avg := total / float64(len(history))
	if avg <= 0 {
		return nil
	}

	if stats.DivergenceL1 > avg*3 {
		return &Bookmark{
			Type:        BookmarkDivergenceUp,
			Frame:       stats.WindowEndFrame,
			Description: fmt.Sprintf("Residual divergence %.3g is %.1fx average with %d iterations", stats.DivergenceL1, stats.DivergenceL1/avg, stats.Iterations),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkBacklogDrop(stats WindowStats) *Bookmark {
	if stats.SplatsDropped <= bd.lastDropped {
		bd.lastDropped = stats.SplatsDropped
		return nil
	}
	n := stats.SplatsDropped - bd.lastDropped
	bd.lastDropped = stats.SplatsDropped
	return &Bookmark{
		Type:        BookmarkBacklogDrop,
		Frame:       stats.WindowEndFrame,
		Description: fmt.Sprintf("Dropped %d queued splats (%d still queued)", n, stats.SplatsQueued),
	}
}

func (bd *BookmarkDetector) checkDyeDepleted(stats WindowStats) *Bookmark {
	if bd.recentDyePeak <= 0 {
		return nil
	}

	drop := 1 - stats.DyeMass/bd.recentDyePeak
	if drop > 0.9 {
		oldPeak := bd.recentDyePeak
		bd.recentDyePeak = stats.DyeMass

		return &Bookmark{
			Type:        BookmarkDyeDepleted,
			Frame:       stats.WindowEndFrame,
			Description: fmt.Sprintf("Dye mass fell %.0f%% from peak %.3g to %.3g", drop*100, oldPeak, stats.DyeMass),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	if stats.KineticEnergy <= 0 {
		bd.settledWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	var sum float64
	for _, h := range history[len(history)-4:] {
		sum += h.KineticEnergy
	}
	mean := sum / 4

	var variance float64
	for _, h := range history[len(history)-4:] {
		d := h.KineticEnergy - mean
		variance += d * d
	}
	variance /= 4

	cv2 := 0.0
	if mean > 0 {
		cv2 = variance / (mean * mean)
	}

	if mean > 0 && cv2 < 0.01 { // CV < 10%
		bd.settledWindowsCount++
	} else {
		bd.settledWindowsCount = 0
	}

	if bd.settledWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkSettledFlow,
			Frame:       stats.WindowEndFrame,
			Description: fmt.Sprintf("Kinetic energy steady near %.3g over 5+ windows", mean),
		}
	}
	return nil
}
