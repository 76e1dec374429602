package discovery

import (
	"context"
	"path/filepath"

	"github.com/charmbracelet/log"

	"pysel/internal/distribution"
	"pysel/internal/logx"
	"pysel/internal/paths"
	"pysel/internal/probe"
)

// Normalizer resolves a candidate's interpreter and asks it for its version.
type Normalizer struct {
	Probe  probe.Interpreter
	Layout paths.Layout
	Logger *log.Logger
}

// Normalize returns the distribution for c, or false when the candidate has
// no runnable interpreter or the interpreter does not answer.
func (n *Normalizer) Normalize(ctx context.Context, c RawCandidate) (distribution.Distribution, bool) {
	logger := logx.OrDiscard(n.Logger)

	exe, ok := n.resolveExecutable(c)
	if !ok {
		logger.Debug("drop candidate without interpreter", "vendor", c.Vendor, "tag", c.Tag, "path", c.InstallPath)
		return distribution.Distribution{}, false
	}

	d := distribution.Distribution{
		Vendor:            c.Vendor,
		VendorDisplayName: c.VendorDisplayName,
		Tag:               c.Tag,
		TagDisplayName:    c.TagDisplayName,
		InstallPath:       c.InstallPath,
		ExecutablePath:    exe,
		Width:             c.Width,
		Scope:             c.Scope,
		Source:            c.Source,
	}

	if c.NeedsPlatform {
		plat, err := n.Probe.QueryPlatform(ctx, exe)
		if err != nil {
			logger.Debug("drop candidate, platform query failed", "exe", exe, "err", err)
			return distribution.Distribution{}, false
		}
		d.Width = distribution.Width(plat.Bits)
		d.ReportedVersion = plat.Version
	} else {
		version, err := n.Probe.QueryVersion(ctx, exe)
		if err != nil {
			logger.Debug("drop candidate, version query failed", "exe", exe, "err", err)
			return distribution.Distribution{}, false
		}
		d.ReportedVersion = version
	}

	if d.Width != distribution.Width32 && d.Width != distribution.Width64 {
		logger.Debug("drop candidate with unknown width", "exe", exe, "bits", int(d.Width))
		return distribution.Distribution{}, false
	}
	return d, true
}

func (n *Normalizer) resolveExecutable(c RawCandidate) (string, bool) {
	if c.InstallPath == "" {
		return "", false
	}
	if c.ExecutablePath != "" {
		exe := c.ExecutablePath
		if !filepath.IsAbs(exe) {
			exe = filepath.Join(c.InstallPath, exe)
		}
		if paths.IsFile(exe) {
			return exe, true
		}
	}
	return n.Layout.FindExecutable(c.InstallPath)
}

// Discoverer runs scanners and normalizes what they find, in order.
type Discoverer struct {
	Scanners   []Scanner
	Normalizer *Normalizer
	Logger     *log.Logger
}

// Discover returns every distribution that survived normalization. The same
// installation may appear more than once when several roots register it.
func (d *Discoverer) Discover(ctx context.Context) []distribution.Distribution {
	logger := logx.OrDiscard(d.Logger)
	var out []distribution.Distribution
	for _, s := range d.Scanners {
		candidates := s.Scan(ctx)
		logger.Debug("scanned", "scanner", s.Name(), "candidates", len(candidates))
		for _, c := range candidates {
			if ctx.Err() != nil {
				return out
			}
			if dist, ok := d.Normalizer.Normalize(ctx, c); ok {
				out = append(out, dist)
			}
		}
	}
	return out
}
