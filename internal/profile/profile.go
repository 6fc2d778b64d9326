// Package profile holds the configurable capability sets a recording session
// is built from: stream constraints, MIME policy and surface layout.
package profile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"camclip/internal/domain"
	"camclip/internal/ports"
)

const (
	MIMETypeMP4  = "video/mp4"
	MIMETypeWebM = "video/webm"
)

var defaultMobilePattern = regexp.MustCompile(`iPad|iPhone|iPod`)

// MIMEPolicy picks a container by sniffing the user agent for mobile OS markers.
type MIMEPolicy struct {
	MobilePattern *regexp.Regexp
	MobileType    string
	DefaultType   string
}

// DefaultMIMEPolicy returns mp4 for iOS devices and webm for everything else.
func DefaultMIMEPolicy() MIMEPolicy {
	return MIMEPolicy{
		MobilePattern: defaultMobilePattern,
		MobileType:    MIMETypeMP4,
		DefaultType:   MIMETypeWebM,
	}
}

// Resolve returns the MIME type to record with for userAgent.
func (p MIMEPolicy) Resolve(userAgent string) string {
	fallback := p.DefaultType
	if fallback == "" {
		fallback = MIMETypeWebM
	}
	if p.MobilePattern == nil || p.MobileType == "" {
		return fallback
	}
	if p.MobilePattern.MatchString(userAgent) {
		return p.MobileType
	}
	return fallback
}

// Profile is one recorder variant.
type Profile struct {
	Name        string
	Constraints ports.CaptureConstraints
	MIME        MIMEPolicy
	// SplitSurface renders the live preview and the finished recording on
	// separate surfaces instead of swapping one.
	SplitSurface bool
}

const (
	Standard = "standard"
	Narrow   = "narrow"
	Split    = "split"
)

func defaultConstraints() ports.CaptureConstraints {
	return ports.CaptureConstraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

var builtins = map[string]func() Profile{
	Standard: func() Profile {
		return Profile{Name: Standard, Constraints: defaultConstraints(), MIME: DefaultMIMEPolicy()}
	},
	Narrow: func() Profile {
		c := defaultConstraints()
		c.Width = 200
		c.FrameRate = 30
		return Profile{Name: Narrow, Constraints: c, MIME: DefaultMIMEPolicy()}
	},
	Split: func() Profile {
		return Profile{Name: Split, Constraints: defaultConstraints(), MIME: DefaultMIMEPolicy(), SplitSurface: true}
	},
}

// Lookup returns the built-in profile with the given name. An empty name
// selects the standard profile.
func Lookup(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = Standard
	}
	build, ok := builtins[key]
	if !ok {
		return Profile{}, fmt.Errorf("unknown recorder profile %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return build(), nil
}

// Names lists the built-in profiles.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PreviewSurface is where the live stream renders.
func (p Profile) PreviewSurface() string {
	return domain.SurfacePreview
}

// PlaybackSurface is where finished recordings render.
func (p Profile) PlaybackSurface() string {
	if p.SplitSurface {
		return domain.SurfacePlayback
	}
	return domain.SurfacePreview
}
