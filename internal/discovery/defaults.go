package discovery

import (
	"github.com/charmbracelet/log"

	"pysel/internal/paths"
	"pysel/internal/probe"
	"pysel/internal/registry"
)

// Options selects which scanners New wires up.
type Options struct {
	Source   registry.Source
	Layout   paths.Layout
	Probe    probe.Interpreter
	Registry bool
	ArcGIS   bool
	Logger   *log.Logger
}

// New builds a Discoverer for the given options.
func New(opts Options) *Discoverer {
	var scanners []Scanner
	if opts.Registry {
		scanners = append(scanners, &RegistryScanner{
			Source:      opts.Source,
			Is64BitHost: opts.Layout.Is64BitHost,
			Logger:      opts.Logger,
		})
	}
	if opts.ArcGIS {
		scanners = append(scanners, &ArcGISScanner{
			Source: opts.Source,
			Layout: opts.Layout,
			Logger: opts.Logger,
		})
	}
	return &Discoverer{
		Scanners: scanners,
		Normalizer: &Normalizer{
			Probe:  opts.Probe,
			Layout: opts.Layout,
			Logger: opts.Logger,
		},
		Logger: opts.Logger,
	}
}
