// Package session records launcher usage across runs.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/peanut-b/QueuMaster-Pro-Enterprise/internal/ports"
)

// Preference keys.
const (
	KeyLastSession       = "lastSession"
	KeyLastToolchainPath = "lastNpmPath"
	KeyLastNetworkAddr   = "lastNetworkIP"
	KeyLaunchCount       = "launchCount"
	KeyAudioEnabled      = "audioEnabled"
	KeyAutoStart         = "autoStart"
)

// Record is the persisted view of previous runs.
type Record struct {
	LastSession       time.Time
	LastNetworkAddr   string
	LastToolchainPath string
	LaunchCount       int
	AutoStart         bool
	// Bell is on unless turned off.
	Bell bool
}

// Session reads and writes the Record through a Store.
type Session struct {
	store Store
	now   func() time.Time
	log   *slog.Logger
}

// New wraps store. A nil logger discards.
func New(store Store, log *slog.Logger) *Session {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		store: store,
		now:   time.Now,
		log:   log.With("component", "session"),
	}
}

// IncrementLaunchCount bumps the launch counter and returns the new value.
// Call it once per application launch.
func (s *Session) IncrementLaunchCount() int {
	count := s.store.GetInt(KeyLaunchCount, 0) + 1
	if err := s.store.PutInt(KeyLaunchCount, count); err != nil {
		s.log.Warn("failed to save launch count", "error", err)
	}
	return count
}

// Save records the end of a session. Empty values and the placeholder
// address are skipped.
func (s *Session) Save(networkAddr, toolchainPath string) error {
	errs := []error{
		s.store.PutString(KeyLastSession, s.now().Format(time.RFC3339)),
	}
	if networkAddr != "" && networkAddr != ports.PlaceholderAddr {
		errs = append(errs, s.store.PutString(KeyLastNetworkAddr, networkAddr))
	}
	if toolchainPath != "" {
		errs = append(errs, s.store.PutString(KeyLastToolchainPath, toolchainPath))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.log.Debug("session saved", "network_addr", networkAddr, "toolchain", toolchainPath)
	return nil
}

// Load returns the stored record. Unparseable timestamps read as zero.
func (s *Session) Load() Record {
	rec := Record{
		LastNetworkAddr:   s.store.GetString(KeyLastNetworkAddr, ""),
		LastToolchainPath: s.store.GetString(KeyLastToolchainPath, ""),
		LaunchCount:       s.store.GetInt(KeyLaunchCount, 0),
		AutoStart:         s.store.GetBool(KeyAutoStart, false),
		Bell:              s.store.GetBool(KeyAudioEnabled, true),
	}
	if raw := s.store.GetString(KeyLastSession, ""); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			rec.LastSession = t
		}
	}
	return rec
}

// LastSessionInfo describes the previous session for display.
func (s *Session) LastSessionInfo() string {
	rec := s.Load()
	if rec.LastSession.IsZero() {
		return "First launch"
	}
	return "Last session: " + rec.LastSession.Local().Format("2006-01-02 15:04:05")
}

func (s *Session) AutoStart() bool {
	return s.store.GetBool(KeyAutoStart, false)
}

func (s *Session) SetAutoStart(enabled bool) error {
	return s.store.PutBool(KeyAutoStart, enabled)
}

func (s *Session) SetBell(enabled bool) error {
	return s.store.PutBool(KeyAudioEnabled, enabled)
}

// Clear removes every stored preference.
func (s *Session) Clear() error {
	if err := s.store.ClearAll(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
